package port

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/finbase/finance-ledger/internal/errmap"
)

const timeFormat = time.RFC3339

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON serializes v with the given status. Encoding failures after the
// header is written can only be dropped.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error to its HTTP shape and writes it.
func writeError(w http.ResponseWriter, err error) {
	httpErr := errmap.ToHTTPError(err)
	writeJSON(w, httpErr.StatusCode, errorResponse{
		Code:    httpErr.Code,
		Message: httpErr.Message,
	})
}
