package storage

import (
	"bufio"
	"io"
	"os"
)

const artifactBufferSize = 256 << 10

// sizedWriter counts the bytes of an artifact as they are written.
type sizedWriter struct {
	w io.Writer
	n int64
}

func (s *sizedWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.n += int64(n)
	return n, err
}

// publish writes the artifact name into the cache directory. The content
// becomes visible under its final name only after it is complete and
// fsynced; on any failure the temporary file is removed and an existing
// artifact of that name is left untouched.
func (m *Manager) publish(name string, write func(io.Writer) error) (err error) {
	target := m.path(name)
	tmp, err := os.CreateTemp(m.dir, name+tempMarker+"*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	sw := &sizedWriter{w: tmp}
	bw := bufio.NewWriterSize(sw, artifactBufferSize)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return err
	}

	m.syncDir()
	m.logger.Debug("published cache artifact", "artifact", name, "bytes", sw.n)
	return nil
}

// read hands a buffered reader over the artifact name to fn.
func (m *Manager) read(name string, fn func(io.Reader) error) error {
	f, err := os.Open(m.path(name))
	if err != nil {
		return err
	}
	defer f.Close()

	return fn(bufio.NewReaderSize(f, artifactBufferSize))
}

// syncDir makes renames and removals in the cache directory durable on POSIX.
// Errors are ignored: the data files themselves are already synced.
func (m *Manager) syncDir() {
	if d, err := os.Open(m.dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
}
