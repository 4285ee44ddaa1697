package api

import (
	"encoding/json"
	"net/http"
	"time"

	"twapOracle/internal/health"
)

// Every status response is either {"Ok": payload} or {"Err": message}.
type okEnvelope struct {
	Ok any `json:"Ok"`
}

type errEnvelope struct {
	Err string `json:"Err"`
}

// DataPayload is the attested TWAP as served on /data. All fields are lower-case
// hex without a 0x prefix.
type DataPayload struct {
	Twap      string `json:"twap"`
	Signature string `json:"signature"`
	PK        string `json:"pk"`
}

// StatusPayload is the informational view served on /status.
type StatusPayload struct {
	Pair             string                `json:"pair"`
	Healthy          bool                  `json:"healthy"`
	Workers          []health.WorkerStatus `json:"workers"`
	Ready            bool                  `json:"ready"`
	PublishedVersion uint64                `json:"published_version"`
	LatestBlock      uint64                `json:"latest_block,omitempty"`
	OldestBlock      uint64                `json:"oldest_block,omitempty"`
	EventCount       int                   `json:"event_count,omitempty"`
	ComputedAt       *time.Time            `json:"computed_at,omitempty"`
	DroppedBatches   uint64                `json:"dropped_batches"`
}

func writeOK(w http.ResponseWriter, payload any) {
	writeJSON(w, http.StatusOK, okEnvelope{Ok: payload})
}

func writeErr(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errEnvelope{Err: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
