// Package vectorize turns the catalog corpus into unit-length embedding vectors.
//
// Texts are split into batches, each batch is embedded on a bounded worker pool
// and retried with exponential backoff, and every vector is written back at the
// offset of its text. The output is row-aligned with the input regardless of
// the order in which batches complete.
package vectorize
