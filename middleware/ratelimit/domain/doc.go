// Package domain defines the contracts and types for rate limiting and
// concurrency limiting.
//
// It does not depend on net/http or on concrete implementations, so the
// rules can be unit tested in isolation from infrastructure.
package domain
