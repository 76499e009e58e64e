// Package indexer coordinates ingestion of a directory tree into the code index.
//
// # Basic Usage
//
//	ix := indexer.New(idx, emb, pol, parser.NewRegistry(), indexer.DefaultConfig(), logger)
//
//	stats, err := ix.Ingest(ctx, "/path/to/project")
//	// later
//	stats, err = ix.Update(ctx, "/path/to/project", stats.RootID)
//
// # Pipeline
//
// A pass fans out over a bounded pool of tasks:
//
//  1. Walk: one task per directory entry; folders recurse by submitting tasks
//  2. Process: read the file, parse and extract entities, create the file record
//  3. Entities: one task per entity; super entities are chunked and queued for embedding
//  4. Embed: a rate-limited worker drains the queue and attaches vectors
//
// Submitting a task never blocks. A full embedding queue spills the send to a
// separate goroutine, so slow embedding never stalls extraction.
//
// # Quiescence
//
// Every task is registered with the pass's Run before it is spawned and ends
// with a deferred End. Ingest and Update return once all tasks have ended and
// every queued embedding has completed:
//
//	run.Begin()
//	go func() {
//	    defer run.End()
//	    task()
//	}()
//
// # Incremental Updates
//
// Update walks local and remote levels side by side, matching entries by name:
//
//	local only   -> ingest
//	both, stale  -> delete entities, update text, re-extract
//	both, fresh  -> skip
//	remote only  -> cascading delete
//
// A file is stale when its mtime exceeds extracted_at by more than
// Config.Staleness. Deletes go bottom-up and stop at the first failing child.
//
// # Error Handling
//
// Only setup failures are returned: an unreadable path, a failed root
// creation, or ErrRootMismatch. Per-entry failures are logged, counted in
// Statistics and do not stop the pass.
package indexer
