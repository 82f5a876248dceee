package rest

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type titleRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type turnResponse struct {
	Messages []models.Message `json:"messages"`
}

type exportResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func callerID(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}

func (h *handler) listConversations(w http.ResponseWriter, r *http.Request) {
	list, err := h.Conversations.List(r.Context(), callerID(r), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, list)
}

func (h *handler) createConversation(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	c, err := h.Conversations.Create(r.Context(), callerID(r), chi.URLParam(r, "userId"), req.Title)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, c)
}

func (h *handler) renameConversation(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.Conversations.Rename(r.Context(), callerID(r), chi.URLParam(r, "conversationId"), req.Title)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, c)
}

func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Chat.ListMessages(r.Context(), chi.URLParam(r, "conversationId"), callerID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, msgs)
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msgs, err := h.Chat.SubmitTurn(r.Context(), chi.URLParam(r, "conversationId"), callerID(r), req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, turnResponse{Messages: msgs})
}

func (h *handler) exportConversation(w http.ResponseWriter, r *http.Request) {
	if h.Export == nil {
		h.fail(w, r, common.NewUserError(common.ErrorUnavailable, "Export is not configured."))
		return
	}

	url, exp, err := h.Export.Export(r.Context(), chi.URLParam(r, "conversationId"), callerID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, exportResponse{URL: url, ExpiresAt: exp})
}
