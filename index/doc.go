// Package index implements the exact inner-product vector index that backs
// address retrieval.
//
// Flat stores every vector in one contiguous row-major slice and scans all
// rows per query. With unit-length vectors the inner product is the cosine
// similarity. Results are ordered by descending score and, for equal scores,
// by ascending row, so a search is fully deterministic.
//
// The binary form written by WriteTo is
//
//	magic   [4]byte  "PMFX"
//	version uint16   1
//	dim     uint32
//	count   uint32
//	data    count*dim float32, row-major
//	crc     uint32   CRC-32 (IEEE) of everything before it
//
// with all integers and floats little-endian.
package index
