// Package simse is a lightweight, embeddable vector store for Go
// applications: persistent text "volumes" with embeddings and flat
// string metadata, cosine similarity search, lexical search (exact,
// substring, token, fuzzy, regex, BM25), structured metadata/date
// filtering, weighted recommendation scoring with access-frequency and
// recency decay, and an adaptive learner that nudges recommendation
// weights toward what past queries actually favored.
//
// # Quick start
//
//	cfg := simse.DefaultConfig("volumes.db")
//	cfg.Embedder = myEmbedder // any simse.Embedder implementation
//	store, err := simse.Open(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close(context.Background())
//
//	id, err := store.Add(ctx, "Go is great for CLIs", map[string]string{"topic": "go"})
//	results, err := store.Search(ctx, "Go is great for CLIs", 5, 0.0)
//
// Add and Search above take raw text and call through to an Embedder
// supplied in Config; callers that already have vectors can use
// AddVector/SearchVector directly against the same store.
package simse
