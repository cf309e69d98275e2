// Package domain models postal-code weather lookups and report generation jobs.
//
// # Postal Codes
//
// Lookups are keyed by Brazilian CEP (Código de Endereçamento Postal):
//
//	"01310-100" → normalized to "01310100"
//	A CEP is exactly 8 digits after stripping punctuation. Anything else is
//	rejected before a lookup is attempted; the 8-digit form is load-bearing
//	because it is the cache key suffix ("weather/01310100").
//
// # Provenance
//
// Every successful lookup carries a Source tag describing where the data
// came from:
//
//	provider  - fresh response from the OpenWeatherMap API. A new
//	            WeatherObservation row is persisted and the result is
//	            cached for the configured TTL (30 minutes by default).
//	cache     - a non-expired prior result returned verbatim. No provider
//	            call, no new row.
//	database  - the provider failed (timeout, non-2xx, malformed payload)
//	            and the most recent persisted observation for the CEP was
//	            returned instead. Fallback results are never written back
//	            to the cache, so provider recovery is visible on the next
//	            miss.
//
// When the provider fails and no prior observation exists, the fetch
// returns ErrWeatherUnavailable. Callers render that as a business-level
// error body, not a transport failure.
//
// # Report Jobs
//
// A ReportJob materializes a CSV, XLSX, or PDF document from the caller's
// historical observations, filtered by CEP substring and an inclusive
// created-at window. Lifecycle:
//
//	pending   - set at enqueue time, synchronously with the request.
//	completed - terminal. FileData and CompletedAt are set, ErrorMessage
//	            is empty.
//	failed    - terminal. ErrorMessage and CompletedAt are set, FileData
//	            is empty. Only written once the delivery attempt that
//	            failed was the last permitted one.
//
// The worker never persists an intermediate "processing" state; a job
// jumps from pending straight to a terminal state. Attempts is a durable
// counter incremented once per delivery, which is what lets "failed" mean
// exhausted rather than merely unlucky. Redelivery of a terminal job is a
// no-op.
package domain
