package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/Jansyler/Rigradar/internal/database"
	"github.com/Jansyler/Rigradar/internal/misc"
	"github.com/Jansyler/Rigradar/internal/model"
)

func (s Server) watchdogCreate() http.HandlerFunc {
	type request struct {
		Query       string   `json:"query"`
		Stores      []string `json:"stores"`
		TargetPrice float64  `json:"targetPrice"`
		Condition   string   `json:"condition"`
		Interval    int64    `json:"interval"`
	}
	type response struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("watchdogCreate: Error getting userContext, err: %v", err)
			s.writeJsonError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		paying, err := s.isPayingIdentity(r.Context(), uc.email)
		if err != nil {
			s.Logger.Errorf("watchdogCreate: Error checking premium status for email: %s, err: %v", uc.email, err)
			s.writeJsonError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if !paying {
			s.Logger.Debugf("watchdogCreate: Non-premium email: %s attempted to create a Watch", uc.email)
			s.writeJsonError(w, "Watchdog is a Premium exclusive feature.", http.StatusForbidden)
			return
		}

		req := request{}
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("watchdogCreate: Error decoding JSON, err: %v", err)
			s.writeJsonError(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.Query == "" || req.TargetPrice == 0 {
			s.Logger.Debugf("watchdogCreate: Missing parameters, query: %q, targetPrice: %v", req.Query, req.TargetPrice)
			s.writeJsonError(w, "Missing parameters", http.StatusBadRequest)
			return
		}

		if len(req.Stores) == 0 {
			req.Stores = model.DefaultStores
		}
		if req.Condition == "" {
			req.Condition = model.ConditionAny
		}
		if req.Interval <= 0 {
			req.Interval = model.DefaultIntervalSeconds
		}

		now := time.Now()
		id := model.NewWatchID(uc.email, now)
		watch := model.Watch{
			Email:       uc.email,
			Query:       req.Query,
			Stores:      req.Stores,
			TargetPrice: req.TargetPrice,
			Condition:   req.Condition,
			Interval:    req.Interval,
			LastScanned: 0,
			Timestamp:   now.UnixMilli(),
		}
		if err = s.DB.WatchInsert(r.Context(), id, watch); err != nil {
			s.Logger.Errorf("watchdogCreate: Error inserting Watch with ID: %s, err: %v", id, err)
			s.writeJsonError(w, "Failed to set watchdog", http.StatusInternalServerError)
			return
		}

		s.Logger.Infof("watchdogCreate: Created Watch with ID: %s, query: %s, targetPrice: %.2f",
			id, misc.StringLimit(req.Query, 45), req.TargetPrice)
		s.writeJsonResponse(w, response{Success: true, ID: id, Message: "Watchdog deployed!"}, http.StatusOK)
	}
}

func (s Server) watchdogList() http.HandlerFunc {
	type response struct {
		Watchdogs []model.StoredWatch `json:"watchdogs"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("watchdogList: Error getting userContext, err: %v", err)
			s.writeJsonError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		ws, err := s.DB.WatchFindByOwner(r.Context(), uc.email)
		if err != nil {
			s.Logger.Errorf("watchdogList: Error finding Watches for email: %s, err: %v", uc.email, err)
			s.writeJsonError(w, "Failed to load watchdogs", http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Watchdogs: ws}, http.StatusOK)
	}
}

func (s Server) watchdogDelete() http.HandlerFunc {
	type request struct {
		WatchdogID string `json:"watchdogId"`
	}
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("watchdogDelete: Error getting userContext, err: %v", err)
			s.writeJsonError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		req := request{}
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("watchdogDelete: Error decoding JSON, err: %v", err)
			s.writeJsonError(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.WatchdogID == "" {
			s.writeJsonError(w, "Missing Watchdog ID", http.StatusBadRequest)
			return
		}

		watch, err := s.DB.WatchFind(r.Context(), req.WatchdogID)
		if err != nil {
			if errors.Is(err, database.ErrWatchNotFound) {
				s.Logger.Debugf("watchdogDelete: No Watch with ID: %s", req.WatchdogID)
				s.writeJsonError(w, "Watchdog not found", http.StatusNotFound)
				return
			}
			s.Logger.Errorf("watchdogDelete: Error finding Watch with ID: %s, err: %v", req.WatchdogID, err)
			s.writeJsonError(w, "Failed to delete watchdog", http.StatusInternalServerError)
			return
		}
		if watch.Email != uc.email {
			s.Logger.Debugf("watchdogDelete: Email: %s attempted to delete Watch with ID: %s owned by: %s",
				uc.email, req.WatchdogID, watch.Email)
			s.writeJsonError(w, "Unauthorized to delete this watchdog", http.StatusForbidden)
			return
		}

		if _, err = s.DB.WatchDelete(r.Context(), req.WatchdogID); err != nil {
			s.Logger.Errorf("watchdogDelete: Error deleting Watch with ID: %s, err: %v", req.WatchdogID, err)
			s.writeJsonError(w, "Failed to delete watchdog", http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}

// watchdogUnsubscribe deletes a Watch through the one-click link embedded in
// alert emails. By design there is no ownership check and no distinction
// between a deleted and an unknown id, anyone holding the id can deactivate
// that Watch and the confirmation page is the same either way.
func (s Server) watchdogUnsubscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			s.Logger.Debug("watchdogUnsubscribe: id query parameter is not supplied")
			s.writeJsonError(w, "Missing Watchdog ID", http.StatusBadRequest)
			return
		}

		deleted, err := s.DB.WatchDelete(r.Context(), id)
		if err != nil {
			s.Logger.Errorf("watchdogUnsubscribe: Error deleting Watch with ID: %s, err: %v", id, err)
			http.Error(w, "Error deactivating watchdog.", http.StatusInternalServerError)
			return
		}
		s.Logger.Infof("watchdogUnsubscribe: Unsubscribe for Watch with ID: %s, existed: %v", id, deleted)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err = w.Write([]byte(unsubscribePage(s.SiteURL))); err != nil {
			s.Logger.Errorf("watchdogUnsubscribe: Error writing response, err: %v", err)
		}
	}
}

func (s Server) watchdogCron() http.HandlerFunc {
	type response struct {
		Status    string `json:"status"`
		Evaluated int    `json:"evaluated"`
		Alerted   int    `json:"alerted"`
		Queued    int    `json:"queued"`
		Skipped   int    `json:"skipped"`
		Failed    int    `json:"failed"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.CronSecret {
			tid := getTraceContext(r.Context()).traceID
			s.Logger.Debugf("watchdogCron: Invalid cron credential, TraceID: %s", tid)
			s.writeJsonError(w, "Unauthorized CRON execution", http.StatusUnauthorized)
			return
		}

		sum, err := s.Engine.RunPass(r.Context())
		if err != nil {
			s.Logger.Errorf("watchdogCron: Error running watchdog evaluation pass, err: %v", err)
			s.writeJsonError(w, "Cron failed", http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{
			Status:    "Watchdog scan complete",
			Evaluated: sum.Evaluated,
			Alerted:   sum.Alerted,
			Queued:    sum.Queued,
			Skipped:   sum.Skipped,
			Failed:    sum.Failed,
		}, http.StatusOK)
	}
}
