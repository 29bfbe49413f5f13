// Package corpus turns catalog records into the searchable texts that are
// embedded into the vector index. Row i of a corpus always describes record i,
// and that correspondence is what ties index rows back to records.
package corpus
