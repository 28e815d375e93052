package domain

import "time"

const (
	// DefaultLimit is the number of free gated actions per client.
	DefaultLimit = 1
	// DefaultTTL is how long a usage record lives after its last write.
	DefaultTTL = 31536000 * time.Second
	// DefaultKeyPrefix namespaces usage records in the shared store.
	DefaultKeyPrefix = "free_trial:application:"
)

// ClientKey identifies a requester, usually its source IP.
// No format is enforced; the caller picks a stable identifier.
type ClientKey string

// Usage is the result of a quota check.
type Usage struct {
	Allowed bool `json:"allowed"`
	Used    int  `json:"used"`
	Limit   int  `json:"limit"`
}

// Remaining returns how many free uses are left, never negative.
func (u Usage) Remaining() int {
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

// Err returns ErrQuotaExceeded when the usage does not allow another action.
func (u Usage) Err() error {
	if u.Allowed {
		return nil
	}
	return ErrQuotaExceeded
}
