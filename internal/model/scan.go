package model

// ScanRequest is a queued instruction for the external scanning worker.
type ScanRequest struct {
	Query      string   `json:"query"`
	Stores     []string `json:"stores"`
	OwnerEmail string   `json:"ownerEmail"`
	Condition  string   `json:"condition,omitempty"`
	MaxPrice   float64  `json:"maxPrice,omitempty"`
	Timestamp  int64    `json:"timestamp"`
	Priority   bool     `json:"priority"`
	Source     string   `json:"source"`
}

const (
	ScanSourceWatchdog = "watchdog_auto"
	ScanSourceUser     = "user_request"
)
