package main

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/agreement"
	"github.com/jbrpriv/RentifyPro-sub000/notification"
	"github.com/jbrpriv/RentifyPro-sub000/payment"
	"github.com/jbrpriv/RentifyPro-sub000/sweep"
)

func SetupRoutes(mux *http.ServeMux, dbConn *sqlx.DB, queue *notification.Queue, webhookSecret func() string) {
	agreementHandler := agreement.Handler(dbConn, queue)
	mux.HandleFunc("/api/agreements", agreementHandler)
	mux.HandleFunc("/api/agreements/", agreementHandler)

	// The webhook reads the raw body itself; no body-parsing middleware may
	// run ahead of it.
	mux.HandleFunc("/api/payments/webhook", payment.WebhookHandler(dbConn, queue, webhookSecret))

	mux.HandleFunc("/api/notifications/failed", notification.FailedJobsHandler(dbConn))
	mux.HandleFunc("/api/sweeps/run", sweep.RunHandler(dbConn, queue))

	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			GetConfigHandler()(w, r)
		case http.MethodPost:
			SaveConfigHandler()(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}
