// Package domain defines the contracts and types for free-trial usage
// accounting.
//
// It does not depend on net/http or on any concrete store, so the
// application layer can be tested against in-memory fakes.
package domain
