// Package fetcher retrieves web pages for source adapters.
//
// Network errors, timeouts, HTTP 429 and 5xx responses are transient and are
// retried with exponential backoff; bad URLs and other non-200 responses are
// permanent. An optional token bucket caps the request rate across all
// fetches made through one fetcher.
package fetcher
