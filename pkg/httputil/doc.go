// Package httputil fetches remote point sources over HTTP.
//
// [Get] issues a GET request and retries transient failures (network errors,
// 429 and 5xx responses) with exponential backoff through [Retry]. Other
// failures are returned immediately:
//
//	body, ctype, err := httputil.Get(ctx, nil, "https://example.com/points.csv")
//
// Wrap an error in [RetryableError] to make [Retry] attempt the operation
// again; any other error stops the loop.
package httputil
