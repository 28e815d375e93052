// Package application holds the free-trial use cases: checking whether a
// client may run the gated action and recording that it did.
//
// It depends only on the domain package and knows nothing about HTTP.
// Ex.: Tracker.Check(ctx, key) returns a domain.Usage (allowed/used/limit).
package application
