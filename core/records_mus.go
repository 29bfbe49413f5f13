package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// IDMUS serializes an ID as an unsigned varint.
var IDMUS = idMUS{}

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	return ID(tmp), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

// RecordMUS serializes a Record field by field in declaration order.
var RecordMUS = recordMUS{}

type recordMUS struct{}

func (s recordMUS) Marshal(v Record, bs []byte) (n int) {
	n = ord.String.Marshal(v.OfficeName, bs)
	n += ord.String.Marshal(v.Pincode, bs[n:])
	n += ord.String.Marshal(v.District, bs[n:])
	n += ord.String.Marshal(v.State, bs[n:])
	n += ord.String.Marshal(v.OfficeType, bs[n:])
	n += ord.String.Marshal(v.Delivery, bs[n:])
	n += raw.Float64.Marshal(v.Latitude, bs[n:])
	n += raw.Float64.Marshal(v.Longitude, bs[n:])
	return n + ord.Bool.Marshal(v.HasCoords, bs[n:])
}

func (s recordMUS) Unmarshal(bs []byte) (v Record, n int, err error) {
	v.OfficeName, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	for _, field := range []*string{&v.Pincode, &v.District, &v.State, &v.OfficeType, &v.Delivery} {
		*field, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.Latitude, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Longitude, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.HasCoords, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	return
}

func (s recordMUS) Size(v Record) (size int) {
	size = ord.String.Size(v.OfficeName)
	size += ord.String.Size(v.Pincode)
	size += ord.String.Size(v.District)
	size += ord.String.Size(v.State)
	size += ord.String.Size(v.OfficeType)
	size += ord.String.Size(v.Delivery)
	size += raw.Float64.Size(v.Latitude)
	size += raw.Float64.Size(v.Longitude)
	return size + ord.Bool.Size(v.HasCoords)
}
