package sweep

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/config"
	"github.com/jbrpriv/RentifyPro-sub000/notification"
)

// RunHandler triggers one sweep outside its schedule. Operator tooling;
// safe because every sweep is idempotent.
func RunHandler(db *sqlx.DB, queue *notification.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Sweep string `json:"sweep"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		cfg := config.GetConfig()
		now := time.Now()
		var err error
		switch body.Sweep {
		case "latefees":
			err = RunLateFees(db, queue, now)
		case "expiry":
			err = RunExpiry(db, now)
		case "reminders":
			err = RunReminders(db, queue, now, cfg.ReminderDays, cfg.ExpiryWarningDays)
		default:
			http.Error(w, "sweep must be one of latefees, expiry, reminders", http.StatusBadRequest)
			return
		}
		if err != nil {
			log.Printf("WARN: [Sweep] Manual %s run failed: %v", body.Sweep, err)
			http.Error(w, "Sweep failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Sweep completed: " + body.Sweep})
	}
}
