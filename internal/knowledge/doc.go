// Package knowledge implements the embedding-indexed document store at the
// heart of pgrag.
//
// A Store pairs every document with exactly one embedding vector, written in
// a single transaction so neither can exist without the other. Retrieval is
// vector similarity search: the query text is embedded and stored vectors
// are ranked by pgvector cosine distance (the <=> operator), reported as
// score = 1 - distance, higher meaning more similar. Cosine distance ranges
// over [0,2], so scores fall in [-1,1]. Ties in distance are broken by
// ascending document id to keep result order deterministic.
//
// The Store depends on two consumer-defined abstractions:
//
//   - Querier: the persistence operations, implemented for production by PG
//     on top of a pgxpool.Pool, and by mocks in tests
//   - Embedder: text-to-vector conversion, implemented by the ollama client
//
// Documents are created exactly once and never updated or deleted.
package knowledge
