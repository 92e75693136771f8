// Package ingest drives an ingestion run: fetch embeddings for a batch of texts,
// then hand the request and the vectors to a persistence unit running on a
// dedicated worker pool, which creates the vector table if needed and writes
// one row per input.
//
// A run moves through Built, Fetching, Fetched, Persisting and Done, or ends in
// Failed when the persistence unit cannot connect or read its request. Fetch
// failures do not fail the run: they are logged, the response collapses to the
// empty sentinel and the persistence unit simply has nothing to write. The
// caller gets a Handle back as soon as the unit has been scheduled and may wait
// on it or drop it; outcome detail lives in logs and in Handle.Result.
package ingest
