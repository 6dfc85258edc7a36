package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"go.uber.org/zap"
)

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.GetLogger(context.Background()).Error("failed to encode response", zap.Error(err))
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

// Error writes the classified form of err.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	p := Classify(err)
	if p.Status >= http.StatusInternalServerError {
		observability.GetLogger(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	WriteError(w, p.Status, p.Code, p.Message)
}
