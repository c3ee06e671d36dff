package agreement

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/mappers"
	"github.com/jbrpriv/RentifyPro-sub000/notification"
)

// statusFor maps service errors to HTTP codes. Anything unrecognized is a
// 500; input validation errors come back as 400 from the handlers directly.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotParty):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadySigned),
		errors.Is(err, ErrRenewalPending),
		errors.Is(err, ErrNotSignable),
		errors.Is(err, ErrNoRenewal),
		errors.Is(err, ErrBadState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARN: [Agreement] Failed to encode response: %v", err)
	}
}

// Handler serves the /api/agreements subtree.
func Handler(db *sqlx.DB, queue *notification.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/agreements"), "/")
		parts := strings.Split(rest, "/")

		switch {
		case rest == "" && r.Method == http.MethodPost:
			createHandler(db, queue, w, r)
		case rest == "" && r.Method == http.MethodGet:
			listHandler(db, w, r)
		case len(parts) == 1 && r.Method == http.MethodGet:
			detailHandler(db, w, r, parts[0])
		case len(parts) == 2 && parts[1] == "sign" && r.Method == http.MethodPost:
			signHandler(db, queue, w, r, parts[0])
		case len(parts) == 2 && parts[1] == "renewal" && r.Method == http.MethodPost:
			proposeRenewalHandler(db, w, r, parts[0])
		case len(parts) == 3 && parts[1] == "renewal" && parts[2] == "respond" && r.Method == http.MethodPost:
			respondRenewalHandler(db, w, r, parts[0])
		case len(parts) == 2 && parts[1] == "terminate" && r.Method == http.MethodPost:
			terminateHandler(db, w, r, parts[0])
		case len(parts) == 2 && parts[1] == "payments" && r.Method == http.MethodGet:
			paymentsHandler(db, w, parts[0])
		default:
			http.NotFound(w, r)
		}
	}
}

func createHandler(db *sqlx.DB, queue *notification.Queue, w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	a, err := Create(db, queue, in)
	if err != nil {
		log.Printf("WARN: [Agreement] Create failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, a)
}

func listHandler(db *sqlx.DB, w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId query parameter is required", http.StatusBadRequest)
		return
	}
	out, err := database.ListAgreementsForUser(db, userID)
	if err != nil {
		log.Printf("WARN: [Agreement] List failed for user %s: %v", userID, err)
		http.Error(w, "Failed to list agreements", http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

func detailHandler(db *sqlx.DB, w http.ResponseWriter, r *http.Request, id string) {
	a, err := database.GetAgreement(db, id)
	if err != nil {
		log.Printf("WARN: [Agreement] Get failed for %s: %v", id, err)
		http.Error(w, "Failed to get agreement", http.StatusInternalServerError)
		return
	}
	if a == nil {
		http.NotFound(w, r)
		return
	}
	view, err := mappers.ToAgreementView(db, a)
	if err != nil {
		log.Printf("WARN: [Agreement] View assembly failed for %s: %v", id, err)
		http.Error(w, "Failed to assemble agreement view", http.StatusInternalServerError)
		return
	}
	writeJSON(w, view)
}

func signHandler(db *sqlx.DB, queue *notification.Queue, w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		SignerID string `json:"signerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SignerID == "" {
		http.Error(w, "signerId is required", http.StatusBadRequest)
		return
	}
	a, err := Sign(db, queue, id, body.SignerID, r.RemoteAddr)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, a)
}

func proposeRenewalHandler(db *sqlx.DB, w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		LandlordID string `json:"landlordId"`
		RenewalInput
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.LandlordID == "" {
		http.Error(w, "landlordId is required", http.StatusBadRequest)
		return
	}
	if err := ProposeRenewal(db, id, body.LandlordID, body.RenewalInput); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]string{"message": "Renewal proposal recorded"})
}

func respondRenewalHandler(db *sqlx.DB, w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		TenantID string `json:"tenantId"`
		Accept   bool   `json:"accept"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TenantID == "" {
		http.Error(w, "tenantId is required", http.StatusBadRequest)
		return
	}
	if err := RespondRenewal(db, id, body.TenantID, body.Accept); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]string{"message": "Renewal response recorded"})
}

func terminateHandler(db *sqlx.DB, w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		ActorID string `json:"actorId"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ActorID == "" {
		http.Error(w, "actorId is required", http.StatusBadRequest)
		return
	}
	if err := Terminate(db, id, body.ActorID, body.Reason); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]string{"message": "Agreement terminated"})
}

func paymentsHandler(db *sqlx.DB, w http.ResponseWriter, id string) {
	payments, err := database.ListPaymentsForAgreement(db, id)
	if err != nil {
		log.Printf("WARN: [Agreement] Payment history failed for %s: %v", id, err)
		http.Error(w, "Failed to list payments", http.StatusInternalServerError)
		return
	}
	writeJSON(w, payments)
}
