package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/transport"
	"github.com/go-playground/validator/v10"
)

const (
	errInvalidBody = "invalid_body"
	msgInvalidJSON = "invalid json"
	maxBodyBytes   = 1 << 20
)

var validate = validator.New()

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		transport.WriteError(w, http.StatusBadRequest, errInvalidBody, msgInvalidJSON)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return false
	}
	return true
}
