package models

// QuotaStatus is the outcome of a quota admission check.
type QuotaStatus struct {
	Allowed      bool   `json:"allowed"`
	CurrentUsage int64  `json:"currentUsage"`
	Limit        int64  `json:"limit"`
	Remaining    int64  `json:"remaining"`
	Requested    int64  `json:"requested"`
	Degraded     bool   `json:"degraded,omitempty"`
	Message      string `json:"message,omitempty"`
}
