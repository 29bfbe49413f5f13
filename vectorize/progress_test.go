package vectorize

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Basic(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 100, 10)

	p.Start()
	p.Add(25)
	p.Add(25)
	p.Add(50)

	assert.GreaterOrEqual(t, p.Elapsed(), time.Duration(0))
	assert.Equal(t, 100, p.Current())

	output := buf.String()
	assert.Contains(t, output, "100/100")
	assert.Contains(t, output, "100.0%")
}

func TestProgress_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 10, 1)

	p.Start()
	p.Add(25)
	assert.Equal(t, 10, p.Current())
}

func TestProgress_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 10, 1)

	p.Add(5)
	p.Finish()

	assert.Equal(t, 0, p.Current())
	assert.Empty(t, buf.String())
	assert.Equal(t, time.Duration(0), p.Elapsed())
}

func TestProgress_Finish(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 100, 50)

	p.Start()
	p.Add(20)
	p.Finish()

	output := buf.String()
	assert.Contains(t, output, "20/100")
	assert.Contains(t, output, "\n", "finish should print newline")
}

func TestProgress_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 1000, 100)
	p.Start()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				p.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, p.Current())
}
