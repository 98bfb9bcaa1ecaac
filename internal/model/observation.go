package model

// PriceObservation is one deal reported by a scanning node, as stored in the
// global_history list. Price is the raw string as scraped, which may carry a
// label prefix ("Best: $329.99") and has to go through watchdog.ParsePrice
// before any numeric comparison.
type PriceObservation struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Price      string `json:"price"`
	URL        string `json:"url"`
	Store      string `json:"store"`
	Opinion    string `json:"opinion"`
	Score      int    `json:"score"`
	Type       string `json:"type"`
	OwnerEmail string `json:"ownerEmail"`
	Timestamp  int64  `json:"timestamp"`
}
