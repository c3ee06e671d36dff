package notification

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/database"
)

// FailedJobsHandler exposes the parked failed-job set for inspection.
func FailedJobsHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := database.ListFailedJobs(db)
		if err != nil {
			log.Printf("WARN: [Queue] Failed to list failed jobs: %v", err)
			http.Error(w, "Failed to list failed jobs", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(jobs); err != nil {
			log.Printf("WARN: [Queue] Failed to encode failed jobs: %v", err)
		}
	}
}
