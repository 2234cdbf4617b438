// Package metrics exposes process counters through expvar (/debug/vars).
package metrics

import "expvar"

var (
	// DocumentsIngestedTotal counts successful ingestions
	DocumentsIngestedTotal = expvar.NewInt("documents_ingested_total")

	// DocumentsFailedTotal counts ingestions rolled back after a failure
	DocumentsFailedTotal = expvar.NewInt("documents_failed_total")

	// ChunksIndexedTotal counts vector entries appended to the index
	ChunksIndexedTotal = expvar.NewInt("chunks_indexed_total")

	// EmbeddingsGeneratedTotal counts successful embedding generations
	EmbeddingsGeneratedTotal = expvar.NewInt("embeddings_generated_total")

	// EmbeddingsFailedTotal counts failed embedding calls
	EmbeddingsFailedTotal = expvar.NewInt("embeddings_failed_total")

	// SearchRequestsTotal counts retrieval requests
	SearchRequestsTotal = expvar.NewInt("search_requests_total")

	// ScopeViolationsTotal counts index hits that referenced no known document
	ScopeViolationsTotal = expvar.NewInt("scope_violations_total")

	// ChatAnswersTotal counts answered chat messages
	ChatAnswersTotal = expvar.NewInt("chat_answers_total")

	// ModelFailuresTotal counts failed language model calls
	ModelFailuresTotal = expvar.NewInt("model_failures_total")
)

// HTTPRequestsTotal counts API requests keyed by status class (2xx, 4xx, 5xx)
var HTTPRequestsTotal = expvar.NewMap("http_requests_total")
