// Package reembed regenerates embedding vectors for a persisted chunk
// corpus, typically after switching embedding models. Chunks are processed
// in batches with retry and progress reporting; the corpus stays readable
// while the operation runs.
package reembed
