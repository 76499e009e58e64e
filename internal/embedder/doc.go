// Package embedder generates vector embeddings for entity chunks and runs the
// rate-limited embedding pipeline.
//
// # Providers
//
// Gemini (google.golang.org/genai), Ollama (github.com/ollama/ollama/api),
// OpenAI and Jina (OpenAI-compatible HTTP) and a deterministic local provider
// for offline runs all implement Embedder:
//
//	emb, err := embedder.New(ctx, embedder.Config{Provider: "gemini"})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "def greet(name): ...",
//	})
//
// # Provider Selection
//
//  1. If CODEINDEX_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if GEMINI_API_KEY or GOOGLE_API_KEY is set → use Gemini
//  3. Else if JINA_API_KEY is set → use Jina AI
//  4. Else if OPENAI_API_KEY is set → use OpenAI
//  5. Else → fallback to local provider
//
// # Errors
//
// Providers report failures through distinct sentinels:
//
//	switch {
//	case errors.Is(err, embedder.ErrEmptyText):         // nothing to embed
//	case errors.Is(err, embedder.ErrRateLimited):       // provider throttled the call
//	case errors.Is(err, embedder.ErrMalformedResponse): // no usable vector in the reply
//	}
//
// Providers never retry. A dropped chunk is picked up again the next time
// its file is re-extracted.
//
// # Pipeline
//
// Worker consumes EmbeddingJobs from a bounded queue. A single consumer
// goroutine hands each job to an errgroup limited to MaxInFlight; each job
// waits on the shared RateLimiter, calls the provider and stores the vector
// through a VectorSink:
//
//	w := embedder.NewWorker(emb, idx, embedder.NewRateLimiter(1000), run, cfg, logger)
//	w.Start(ctx)
//	w.Submit(types.EmbeddingJob{EntityID: id, ChunkIndex: 0, Text: chunk})
//	...
//	w.Close() // waits for queued jobs
//
// Submit never blocks. When the queue is full the send moves to its own
// goroutine, so slow embedding delays vectors but not extraction.
//
// # Caching
//
// Providers share an LRU cache keyed by model name and the SHA-256 of the
// text. Cached vectors are copied on read and on write.
package embedder
