package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMw, s.maxBytesMw)

	api.HandleFunc("/watchdog/unsubscribe", s.watchdogUnsubscribe()).Methods(http.MethodGet)
	api.HandleFunc("/watchdog/cron", s.watchdogCron()).Methods(http.MethodGet)

	api.Handle("/watchdog", s.authMw(s.watchdogCreate())).Methods(http.MethodPost)
	api.Handle("/watchdog", s.authMw(s.watchdogList())).Methods(http.MethodGet)
	api.Handle("/watchdog", s.authMw(s.watchdogDelete())).Methods(http.MethodDelete)

	api.HandleFunc("/scan/request", s.scanRequest()).Methods(http.MethodPost)
	api.HandleFunc("/observation", s.observationIngest()).Methods(http.MethodPost)

	api.PathPrefix("").Handler(http.NotFoundHandler())

	return r
}
