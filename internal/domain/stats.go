package domain

import "sync/atomic"

// ChunkStats counts the outcome of a chunking batch.
type ChunkStats struct {
	Files         atomic.Int64
	Processed     atomic.Int64
	Skipped       atomic.Int64
	Failed        atomic.Int64
	ChunksWritten atomic.Int64
}

// AnnotateStats counts the outcome of a keyword/summary batch.
type AnnotateStats struct {
	DocsTotal        atomic.Int64
	Processed        atomic.Int64
	NoChunks         atomic.Int64
	Failed           atomic.Int64
	SummariesWritten atomic.Int64
	ChunksRewritten  atomic.Int64
	ChunksSkipped    atomic.Int64
}

// IndexStats counts the outcome of an embedding batch.
type IndexStats struct {
	Collections atomic.Int64
	Entries     atomic.Int64
	Failed      atomic.Int64
}
