package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Jansyler/Rigradar/internal/misc"
	"github.com/Jansyler/Rigradar/internal/model"
)

const (
	scanRateLimitWindow = 15 * time.Second
	scanRateLimitMax    = 2
)

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown_ip"
}

// scanRequest enqueues a user-initiated scan for the external scanning
// worker, rate-limited per client IP.
func (s Server) scanRequest() http.HandlerFunc {
	type request struct {
		Query      string   `json:"query"`
		Stores     []string `json:"stores"`
		OwnerEmail string   `json:"ownerEmail"`
	}
	type response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		count, err := s.DB.RateLimitIncr(r.Context(), ip, scanRateLimitWindow)
		if err != nil {
			s.Logger.Errorf("scanRequest: Error incrementing rate limit counter for: %s, err: %v", ip, err)
			s.writeJsonError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if count > scanRateLimitMax {
			s.Logger.Debugf("scanRequest: Rate limit exceeded for: %s, count: %d", ip, count)
			s.writeJsonError(w, "Wait 15s before next scan!", http.StatusTooManyRequests)
			return
		}

		req := request{}
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("scanRequest: Error decoding JSON, err: %v", err)
			s.writeJsonError(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.Query == "" {
			s.writeJsonError(w, "Query is required", http.StatusBadRequest)
			return
		}
		if len(req.Stores) == 0 {
			req.Stores = model.DefaultStores
		}
		if req.OwnerEmail == "" {
			req.OwnerEmail = "system"
		}

		sr := model.ScanRequest{
			Query:      req.Query,
			Stores:     req.Stores,
			OwnerEmail: req.OwnerEmail,
			Timestamp:  time.Now().UnixMilli(),
			Priority:   true,
			Source:     model.ScanSourceUser,
		}
		if err = s.DB.ScanRequestEnqueue(r.Context(), sr); err != nil {
			s.Logger.Errorf("scanRequest: Error enqueueing ScanRequest with query: %s, err: %v",
				misc.StringLimit(req.Query, 45), err)
			s.writeJsonError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true, Message: "Scan queued"}, http.StatusOK)
	}
}

// observationIngest receives scan results and heartbeats from the external
// scanning nodes, guarded by a shared API key.
func (s Server) observationIngest() http.HandlerFunc {
	type request struct {
		Type       string `json:"type"`
		Price      string `json:"price"`
		Title      string `json:"title"`
		URL        string `json:"url"`
		Store      string `json:"store"`
		Opinion    string `json:"opinion"`
		Score      int    `json:"score"`
		OwnerEmail string `json:"ownerEmail"`
	}
	type response struct {
		Status string `json:"status"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Radar-Api-Key") != s.RadarAPIKey {
			tid := getTraceContext(r.Context()).traceID
			s.Logger.Debugf("observationIngest: Invalid radar API key, TraceID: %s", tid)
			s.writeJsonError(w, "Unauthorized radar node", http.StatusUnauthorized)
			return
		}

		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("observationIngest: Error decoding JSON, err: %v", err)
			s.writeJsonError(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if req.Type == "heartbeat" {
			if err := s.DB.HeartbeatSet(r.Context(), time.Now()); err != nil {
				s.Logger.Errorf("observationIngest: Error setting heartbeat, err: %v", err)
				s.writeJsonError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			s.writeJsonResponse(w, response{Status: "Heartbeat registered"}, http.StatusOK)
			return
		}

		if req.Price == "" || req.Opinion == "" {
			s.writeJsonError(w, "Missing data", http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			req.Title = "Unknown Product"
		}
		if req.URL == "" {
			req.URL = "#"
		}
		if req.Store == "" {
			req.Store = "EBAY"
		}
		if req.Score == 0 {
			req.Score = 50
		}
		if req.Type == "" {
			req.Type = "HW"
		}
		if req.OwnerEmail == "" {
			req.OwnerEmail = "system"
		}

		now := time.Now()
		obs := model.PriceObservation{
			ID:         strconv.FormatInt(now.UnixMilli(), 10),
			Title:      req.Title,
			Price:      req.Price,
			URL:        req.URL,
			Store:      req.Store,
			Opinion:    req.Opinion,
			Score:      req.Score,
			Type:       req.Type,
			OwnerEmail: req.OwnerEmail,
			Timestamp:  now.UnixMilli(),
		}
		if err := s.DB.HistoryInsert(r.Context(), obs); err != nil {
			s.Logger.Errorf("observationIngest: Error inserting PriceObservation: %s, err: %v",
				misc.StringLimit(req.Title, 45), err)
			s.writeJsonError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.Logger.Debugf("observationIngest: Recorded PriceObservation: %s, price: %s, store: %s",
			misc.StringLimit(req.Title, 45), req.Price, req.Store)
		s.writeJsonResponse(w, response{Status: "Observation recorded"}, http.StatusOK)
	}
}
