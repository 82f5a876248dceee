package rest

import (
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/server/services"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	Token        string `json:"token"`
	UserID       string `json:"userId"`
	RefreshToken string `json:"refreshToken"`
}

func toSessionResponse(s *services.Session) sessionResponse {
	return sessionResponse{Token: s.AccessToken, UserID: s.UserID, RefreshToken: s.RefreshToken}
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.Users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.Users.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		Error(w, http.StatusBadRequest, "Refresh token is required.")
		return
	}

	sess, err := h.Users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.PingContext(r.Context()); err != nil {
			h.Logger.Error(r.Context(), "health check failed", "error", err)
			JSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
			return
		}
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
