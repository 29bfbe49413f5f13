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

// Package ai provides the embedding abstraction used to vectorize the address
// catalog and incoming queries.
//
// The core never talks to a model directly; it depends on
//
//   - Embedder: turns text into vectors, order preserving, safe for concurrent use
//   - AIProvider: owns an Embedder and whatever connection sits behind it
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embedding APIs through langchaingo
//   - ai/mock: deterministic test doubles
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return INTERFACE
// types. Test utility constructors (mock.NewMockEmbedder) return CONCRETE types
// so tests can inject behavior and check call counts.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithEmbeddingModel("all-minilm")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "koramangala bangalore 560034")
//
// An embedding is only comparable with embeddings produced by the same model.
// Changing EmbeddingModel requires clearing the index cache.
package ai
