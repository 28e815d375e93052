// Package application holds the rate-limit and concurrency use cases.
//
// It depends only on the domain package and does not know net/http.
// Ex.: Service.Decide(route, client) returns a Decision (allow/deny + retry-after).
package application
