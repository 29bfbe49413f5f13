// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/mus-format/mus-go/varint"
	"github.com/pierrec/lz4/v4"

	"github.com/poiesic/pinmatch/core"
)

// MarshalID encodes an ID for use as a storage value.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID decodes an ID written by MarshalID.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalRecord encodes a single catalog record.
func MarshalRecord(record *core.Record) []byte {
	buf := make([]byte, core.RecordMUS.Size(*record))
	core.RecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalRecord decodes a record written by MarshalRecord.
func UnmarshalRecord(data []byte) (*core.Record, error) {
	record, _, err := core.RecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// EncodeRecordTable serializes records as a varint count followed by each record,
// compressed with zstd.
func EncodeRecordTable(records []core.Record) []byte {
	size := varint.Int.Size(len(records))
	for i := range records {
		size += core.RecordMUS.Size(records[i])
	}

	raw := make([]byte, size)
	n := varint.Int.Marshal(len(records), raw)
	for i := range records {
		n += core.RecordMUS.Marshal(records[i], raw[n:])
	}

	enc := getZstdEncoder()
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))
}

// DecodeRecordTable reverses EncodeRecordTable.
func DecodeRecordTable(data []byte) ([]core.Record, error) {
	dec := getZstdDecoder()
	raw, err := dec.DecodeAll(data, nil)
	zstdDecoderPool.Put(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %w", ErrSerializationFailed, err)
	}

	count, n, err := varint.Int.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: record count: %w", ErrSerializationFailed, err)
	}
	// Every record takes at least one byte per field.
	if count < 0 || count > len(raw)-n {
		return nil, fmt.Errorf("%w: record count %d", ErrTruncatedData, count)
	}

	records := make([]core.Record, count)
	for i := range records {
		record, m, err := core.RecordMUS.Unmarshal(raw[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrSerializationFailed, i, err)
		}
		records[i] = record
		n += m
	}
	if n != len(raw) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(raw)-n)
	}
	return records, nil
}

// WriteEmbeddings writes vectors as an lz4 frame holding count and dim (uint32 LE)
// followed by the row-major float32 payload.
func WriteEmbeddings(w io.Writer, vectors [][]float32) error {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	zw := lz4.NewWriter(w)
	bw := bufio.NewWriter(zw)

	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(dim))
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	buf := make([]byte, 4*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: row %d has %d dimensions, expected %d", ErrSerializationFailed, i, len(v), dim)
		}
		for j, x := range v {
			binary.LittleEndian.PutUint32(buf[4*j:], math.Float32bits(x))
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	return zw.Close()
}

// ReadEmbeddings reads vectors written by WriteEmbeddings.
func ReadEmbeddings(r io.Reader) ([][]float32, error) {
	zr := bufio.NewReader(lz4.NewReader(r))

	var hdr [8]byte
	if _, err := io.ReadFull(zr, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrTruncatedData, err)
	}
	count := int(binary.LittleEndian.Uint32(hdr[0:]))
	dim := int(binary.LittleEndian.Uint32(hdr[4:]))
	if count > 0 && dim == 0 {
		return nil, fmt.Errorf("%w: %d rows without dimension", ErrSerializationFailed, count)
	}

	vectors := make([][]float32, 0, min(count, 1<<16))
	buf := make([]byte, 4*dim)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(zr, buf); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrTruncatedData, i, err)
		}
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}
