package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/common"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the {success:false,message} envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Success: false, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, r, dst, false)
}

// decodeBody decodes a JSON body into dst. An empty body is accepted when
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	Error(w, http.StatusBadRequest, "Invalid request body.")
	return false
}

var statusByClass = []struct {
	class  error
	status int
}{
	{common.ErrorValidation, http.StatusBadRequest},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrorForbidden, http.StatusForbidden},
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrorUnavailable, http.StatusServiceUnavailable},
}

// statusFor maps a service error to a status code and the text callers see.
// Unclassified errors become 500 "Server Error".
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "Refresh token expired."
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, msgTokenInvalid
	}

	msg, public := common.PublicMessage(err)
	for _, c := range statusByClass {
		if errors.Is(err, c.class) {
			if !public {
				msg = http.StatusText(c.status)
			}
			return c.status, msg
		}
	}
	return http.StatusInternalServerError, "Server Error"
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(r.Context(), "request failed", "error", err)
	}
	Error(w, status, msg)
}
