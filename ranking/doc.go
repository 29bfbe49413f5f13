// Package ranking re-scores retrieved candidates by fusing their raw
// similarity with rule-based boosts for literal agreement between the query
// and the record (postal code, office name, district, state).
//
// Each boost is added to the running confidence and clamped at 1.0, so for a
// raw similarity s <= 1 the fused confidence c always satisfies s <= c <= 1.
package ranking
