package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-system/internal/middleware"
	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/repository"
	"github.com/mmeshcher/storefront-system/internal/service"
)

type createTicketRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=4000"`
}

type ticketResponse struct {
	ID        int64  `json:"id"`
	Subject   string `json:"subject"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func toTicketResponse(t model.Ticket) ticketResponse {
	return ticketResponse{
		ID:        t.ID,
		Subject:   t.Subject,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

// CreateTicket создаёт обращение в поддержку от текущего пользователя.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	ticket, err := h.service.CreateTicket(r.Context(), accountID, req.Subject, req.Message)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("create ticket error", zap.Error(err), zap.Int64("accountID", accountID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, toTicketResponse(*ticket))
}

// GetTickets возвращает обращения текущего пользователя.
func (h *Handler) GetTickets(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	tickets, err := h.service.GetTickets(r.Context(), accountID)
	if err != nil {
		h.logger.Error("get tickets error", zap.Error(err), zap.Int64("accountID", accountID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(tickets) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		resp = append(resp, toTicketResponse(t))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type ticketMessageResponse struct {
	ID        int64  `json:"id"`
	AuthorID  int64  `json:"author_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// actorFromRequest загружает аккаунт текущего пользователя для проверки доступа.
func (h *Handler) actorFromRequest(r *http.Request) (*model.Account, error) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return h.service.GetAccount(r.Context(), accountID)
}

// GetTicketMessages возвращает сообщения обращения.
func (h *Handler) GetTicketMessages(w http.ResponseWriter, r *http.Request) {
	ticketID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	actor, err := h.actorFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	messages, err := h.service.GetTicketMessages(r.Context(), actor, ticketID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, service.ErrTicketAccessDenied):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		default:
			h.logger.Error("get ticket messages error", zap.Error(err), zap.Int64("ticketID", ticketID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	resp := make([]ticketMessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, ticketMessageResponse{
			ID:        m.ID,
			AuthorID:  m.AuthorID,
			Body:      m.Body,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type addMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// AddTicketMessage добавляет сообщение в обращение.
func (h *Handler) AddTicketMessage(w http.ResponseWriter, r *http.Request) {
	ticketID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req addMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	actor, err := h.actorFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	message, err := h.service.AddTicketMessage(r.Context(), actor, ticketID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, service.ErrTicketAccessDenied):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		default:
			h.logger.Error("add ticket message error", zap.Error(err), zap.Int64("ticketID", ticketID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, ticketMessageResponse{
		ID:        message.ID,
		AuthorID:  message.AuthorID,
		Body:      message.Body,
		CreatedAt: message.CreatedAt.Format(time.RFC3339),
	})
}
