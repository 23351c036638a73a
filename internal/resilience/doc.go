// Package resilience groups the fault tolerance helpers used by sources,
// provider backends, publishing channels and the run journal.
//
//   - circuitbreaker: gobreaker wrappers per external dependency, plus a
//     database wrapper for the journal
//   - retry: exponential backoff for provider calls and a fixed-delay Fetch
//     for content and enrichment sources
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.SourceConfig("bible21"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return fetchPage(ctx)
//	})
//
//	quote, err := retry.Fetch(ctx, retry.Fixed(3, 5*time.Second), "bible21", fetch)
package resilience
