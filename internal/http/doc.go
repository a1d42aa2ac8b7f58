// Package http provides HTTP handlers and middleware for the call scheduler API.
//
// The router exposes the following endpoints, all scoped to the user in the path:
//   - GET, PUT /users/{userID}/profile: the scheduling profile exchanging the
//     `profileDTO` payload defined in profile_handler.go. Times of day use "HH:MM",
//     active days use weekday tokens such as "mon".
//   - GET, POST /users/{userID}/blocked-intervals and GET, PUT
//     /users/{userID}/blocked-intervals/{intervalID}: recurring do-not-call ranges
//     exchanging `blockedIntervalDTO`. POST .../activate and .../deactivate toggle
//     the active flag. GET accepts ?active=true to hide inactive intervals.
//   - GET /users/{userID}/upcoming-blocks?days=N: concrete occurrences of the active
//     intervals over the next N days (default 7, max 31) in the user's zone.
//   - POST /users/{userID}/proposals: computes and commits the next call instant.
//     Concurrent modifications are retried a bounded number of times before 409.
//   - POST /users/{userID}/attempts: records a call outcome and clears the pending
//     proposal. GET lists recent attempts, newest first, with ?limit=N.
//   - POST /users/{userID}/validate: checks a caller supplied RFC 3339 instant and
//     returns a suggestion when it is rejected.
//   - GET /healthz and GET /metrics: store availability and Prometheus metrics.
//
// Error bodies carry a localized message and an error_code. Exhausted searches
// answer 422 NO_VALID_SLOT with the attempt count and the constraints that
// rejected candidates.
package http
