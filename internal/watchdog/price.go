package watchdog

import (
	"strconv"
	"strings"

	"github.com/Jansyler/Rigradar/internal/model"
)

// ParsePrice extracts a numeric price from a scraped price string. Scanning
// nodes report prices in wildly inconsistent shapes: a label prefix before a
// colon ("Best: $329.99"), currency symbols and trailing words, and a comma
// as the decimal separator when no dot is present. Valid prices are > 0.
func ParsePrice(raw string) (float64, bool) {
	s := raw
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if !strings.ContainsRune(s, '.') {
		s = strings.ReplaceAll(s, ",", ".")
	}
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	p, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || p <= 0 {
		return 0, false
	}
	return p, true
}

// MatchesQuery reports whether every whitespace-separated keyword of query
// appears in title, case-insensitively. Plain substring containment is the
// matching contract the dashboard and the alert emails are built around, a
// "rtx 4070" watch matches "ASUS RTX 4070 Ti OC" and also any unrelated
// title that happens to contain both fragments.
func MatchesQuery(query string, title string) bool {
	t := strings.ToLower(title)
	for _, kw := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(t, kw) {
			return false
		}
	}
	return true
}

// BestDeal returns the matching observation with the lowest valid price.
// Ties keep the earlier (newer, history is newest-first) observation.
func BestDeal(obs []model.PriceObservation, query string) (model.PriceObservation, float64, bool) {
	var (
		best   model.PriceObservation
		lowest float64
		found  bool
	)
	for _, o := range obs {
		if o.Title == "" || !MatchesQuery(query, o.Title) {
			continue
		}
		p, ok := ParsePrice(o.Price)
		if !ok {
			continue
		}
		if !found || p < lowest {
			lowest = p
			best = o
			found = true
		}
	}
	return best, lowest, found
}
