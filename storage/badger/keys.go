package badger

import (
	"encoding/binary"

	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/storage"
)

const (
	catalogPrefix        = "cat"
	catalogRecordPrefix  = "catrec:"
	catalogPincodePrefix = "catpin:"
	catalogIDPrefix      = "catid:"
	catalogCountKey      = "catcnt"
)

// makeRecordKey builds the primary key of the record at position seq.
// BigEndian keeps iteration in import order.
func makeRecordKey(seq uint64) []byte {
	buf := make([]byte, len(catalogRecordPrefix)+8)
	offset := copy(buf, catalogRecordPrefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

func seqFromRecordKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(catalogRecordPrefix):])
}

// makePincodeKey builds the index entry mapping pincode to the record at seq.
func makePincodeKey(pincode string, seq uint64) []byte {
	prefix := makePartialPincodeKey(pincode)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

func makePartialPincodeKey(pincode string) []byte {
	buf := make([]byte, 0, len(catalogPincodePrefix)+len(pincode)+1)
	buf = append(buf, catalogPincodePrefix...)
	buf = append(buf, pincode...)
	return append(buf, ':')
}

func seqFromPincodeKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// makeIDKey builds the index entry mapping a record content ID to its seq.
func makeIDKey(id core.ID) []byte {
	return append([]byte(catalogIDPrefix), storage.MarshalID(id)...)
}

func encodeSeq(seq uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return buf[:]
}
