package model

import (
	"fmt"
	"time"
)

// Watch is one price-watch subscription as stored in the watchdogs hash.
// The watch id is the hash field, not part of the stored value.
type Watch struct {
	Email            string   `json:"email"`
	Query            string   `json:"query"`
	Stores           []string `json:"stores"`
	TargetPrice      float64  `json:"targetPrice"`
	Condition        string   `json:"condition"`
	Interval         int64    `json:"interval"`
	LastScanned      int64    `json:"lastScanned"`
	Timestamp        int64    `json:"timestamp"`
	LastEmailedPrice *float64 `json:"lastEmailedPrice"`
}

// StoredWatch pairs a Watch with its registry id.
type StoredWatch struct {
	ID string `json:"id"`
	Watch
}

const (
	ConditionAny  = "any"
	ConditionNew  = "new"
	ConditionUsed = "used"

	DefaultIntervalSeconds = 3600
)

var DefaultStores = []string{"ebay"}

// NewWatchID derives an id from the owner and creation time.
func NewWatchID(email string, t time.Time) string {
	return fmt.Sprintf("wd_%s_%d", email, t.UnixMilli())
}

func (w Watch) Due(now time.Time) bool {
	return now.UnixMilli()-w.LastScanned >= w.Interval*1000
}
