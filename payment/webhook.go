package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/notification"
)

// SignatureHeader carries the processor's message signature as
// "t=<unix>,v1=<hex hmac-sha256 of "<unix>.<raw body>">".
const SignatureHeader = "X-Payment-Signature"

// signatureTolerance bounds how old a signed timestamp may be. Replays of
// old captures are rejected at the signature layer.
const signatureTolerance = 5 * time.Minute

// Event types sent by the processor.
const (
	EventCheckoutCompleted = "checkout.completed"
	EventPaymentFailed     = "payment.failed"
)

// Event is the externally delivered payment confirmation.
type Event struct {
	Type          string            `json:"type"`
	TransactionID string            `json:"transactionId"`
	Metadata      map[string]string `json:"metadata"`
}

// VerifySignature checks the signature header against the unmodified raw
// body. Returns an error on any mismatch; callers must not touch state
// until this has passed.
func VerifySignature(secret string, rawBody []byte, header string, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("webhook secret is not configured")
	}
	var tsPart, sigPart string
	for _, field := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			tsPart = v
		case "v1":
			sigPart = v
		}
	}
	if tsPart == "" || sigPart == "" {
		return fmt.Errorf("malformed signature header")
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed signature timestamp")
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(tsPart))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sigPart)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// WebhookHandler processes signed payment events. The raw body is read
// before any parsing because the signature covers the bytes on the wire.
// Permanent problems (missing agreement, replayed event) are acknowledged
// with 200 so the processor stops redelivering.
func WebhookHandler(db *sqlx.DB, queue *notification.Queue, secret func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		if err := VerifySignature(secret(), rawBody, r.Header.Get(SignatureHeader), time.Now()); err != nil {
			log.Printf("WARN: [Payment] Webhook signature rejected: %v", err)
			http.Error(w, "Invalid signature", http.StatusBadRequest)
			return
		}

		var event Event
		if err := json.Unmarshal(rawBody, &event); err != nil {
			http.Error(w, "Invalid event body", http.StatusBadRequest)
			return
		}

		switch event.Type {
		case EventCheckoutCompleted:
			result, err := Reconcile(db, queue, &event)
			if err != nil {
				log.Printf("WARN: [Payment] Reconciliation failed for transaction %s: %v",
					event.TransactionID, err)
				http.Error(w, "Reconciliation failed", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(result)
		case EventPaymentFailed:
			// Logged only; no state mutation for failed attempts.
			log.Printf("WARN: [Payment] Payment attempt failed for agreement %s (transaction %s)",
				event.Metadata["agreementId"], event.TransactionID)
			w.WriteHeader(http.StatusOK)
		default:
			log.Printf("INFO: [Payment] Ignoring event type %q", event.Type)
			w.WriteHeader(http.StatusOK)
		}
	}
}
