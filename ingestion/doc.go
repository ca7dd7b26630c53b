// Package ingestion loads transcript chunks and panel metadata into the
// corpus stores.
//
// The Pipeline type manages the ingestion workflow:
//   - Embedding chunk text in concurrent batches over a worker pool
//   - Persisting chunks with their vectors
//   - Indexing chunks into the live hybrid index
//   - Upserting panel metadata records
//
// Embedding batches run concurrently; a batch failure fails the whole
// ingestion call so a partial corpus is never reported as complete.
package ingestion
