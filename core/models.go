package core

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for catalog records.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Record is one canonical postal office entry from the catalog.
// Records are immutable once loaded.
type Record struct {
	OfficeName string
	Pincode    string // 6-digit postal code
	District   string
	State      string
	OfficeType string // Optional, e.g. "HO", "SO", "BO"
	Delivery   string // Optional delivery status from the dataset
	Latitude   float64
	Longitude  float64
	HasCoords  bool // Latitude/Longitude are only meaningful when set
}

// ID returns the content-based identifier of the record.
func (r *Record) ID() ID {
	return IDFromContent(r.OfficeName + "|" + r.Pincode + "|" + r.District + "|" + r.State)
}

// Coordinates returns the record's latitude and longitude and whether they are known.
func (r *Record) Coordinates() (lat, lon float64, ok bool) {
	return r.Latitude, r.Longitude, r.HasCoords
}

// EnrichmentStatus distinguishes why an enrichment value is or isn't present.
type EnrichmentStatus int

const (
	// EnrichmentNotAttempted means enrichment was not requested.
	EnrichmentNotAttempted EnrichmentStatus = iota
	// EnrichmentUnavailable means enrichment was requested but no value could be obtained.
	EnrichmentUnavailable
	// EnrichmentSucceeded means the external service returned a value.
	EnrichmentSucceeded
)

// UnavailableCode is the display value used when enrichment could not be obtained.
const UnavailableCode = "N/A"

// String returns a lowercase name for the status.
func (s EnrichmentStatus) String() string {
	switch s {
	case EnrichmentNotAttempted:
		return "not_attempted"
	case EnrichmentUnavailable:
		return "unavailable"
	case EnrichmentSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// Enrichment is an externally looked-up value attached to a match.
type Enrichment struct {
	Status EnrichmentStatus
	Code   string
	Reason string // Set when Status is EnrichmentUnavailable
}

// Display returns the code for succeeded enrichments and UnavailableCode otherwise.
func (e Enrichment) Display() string {
	if e.Status == EnrichmentSucceeded {
		return e.Code
	}
	return UnavailableCode
}

// Match is a single ranked result returned to callers.
type Match struct {
	Rank          int
	Record        *Record
	Similarity    float32 // Raw cosine similarity from the vector index
	Confidence    float32 // Similarity fused with rule-based boosts
	MatchedTokens []string
	Enrichment    Enrichment
}

// MatchResponse is the result of matching one query against the catalog.
type MatchResponse struct {
	RequestID        string
	Query            string
	NormalizedQuery  string
	Matches          []Match
	ProcessingTimeMs float64
}
