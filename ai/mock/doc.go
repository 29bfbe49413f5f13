// Package mock holds deterministic stand-ins for the ai interfaces.
//
// MockEmbedder maps each lowercased token to an FNV-chosen dimension and
// returns the unit-length sum, so two addresses sharing words score above
// zero and identical texts score 1. Tests steer failures through the func
// fields and read CallCount and TextsCount afterwards:
//
//	embedder := mock.NewMockEmbedder().
//	    WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        return nil, errors.New("model offline")
//	    })
//	engine, _ := pinmatch.NewEngine(source, embedder)
//
// MockProvider wraps a MockEmbedder and records Close.
package mock
