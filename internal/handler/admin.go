package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/repository"
	"github.com/mmeshcher/storefront-system/internal/service"
)

func pageParams(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// AdminListAccounts возвращает страницу аккаунтов.
func (h *Handler) AdminListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	accounts, err := h.service.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list accounts error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		acc := a
		resp = append(resp, toAccountResponse(&acc))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type adjustRequest struct {
	Amount      float64 `json:"amount" validate:"required"`
	Description string  `json:"description" validate:"max=500"`
}

// AdminAdjustBalance применяет ручную корректировку баланса аккаунта.
func (h *Handler) AdminAdjustBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	acc, err := h.service.AdminAdjust(r.Context(), accountID, req.Amount, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrAccountNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrInsufficientBalance):
			http.Error(w, http.StatusText(http.StatusPaymentRequired), http.StatusPaymentRequired)
		default:
			h.logger.Error("adjust balance error", zap.Error(err), zap.Int64("accountID", accountID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

type banRequest struct {
	Banned bool `json:"banned"`
}

// AdminSetBan блокирует или разблокирует аккаунт.
func (h *Handler) AdminSetBan(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.SetAccountBan(r.Context(), accountID, req.Banned); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("set ban error", zap.Error(err), zap.Int64("accountID", accountID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type tierRequest struct {
	Tier string `json:"tier" validate:"required"`
}

// AdminSetTier выставляет уровень аккаунта вручную.
func (h *Handler) AdminSetTier(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req tierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.SetAccountTier(r.Context(), accountID, model.Tier(req.Tier)); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTier):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrAccountNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("set tier error", zap.Error(err), zap.Int64("accountID", accountID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// AdminListOrders возвращает страницу заказов всех аккаунтов.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	orders, err := h.service.ListOrders(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list orders error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminSetOrderStatus перезаписывает статус заказа.
func (h *Handler) AdminSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.SetOrderStatus(r.Context(), orderID, model.OrderStatus(req.Status)); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOrderStatus):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("set order status error", zap.Error(err), zap.Int64("orderID", orderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// AdminRefundOrder возвращает средства по завершённому заказу.
func (h *Handler) AdminRefundOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.RefundOrder(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrOrderNotRefundable):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("refund order error", zap.Error(err), zap.Int64("orderID", orderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(*order))
}

type productRequest struct {
	Category    string  `json:"category" validate:"max=100"`
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
}

// AdminCreateProduct добавляет товар в каталог.
func (h *Handler) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	priceCents, ok := service.ToCents(req.Price)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), model.Product{
		Category:    req.Category,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  priceCents,
		Stock:       req.Stock,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("create product error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, toProductResponse(*product))
}

// AdminUpdateProduct обновляет карточку товара.
func (h *Handler) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	priceCents, ok := service.ToCents(req.Price)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err = h.service.UpdateProduct(r.Context(), model.Product{
		ID:          productID,
		Category:    req.Category,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  priceCents,
		Stock:       req.Stock,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrProductNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("update product error", zap.Error(err), zap.Int64("productID", productID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// AdminListTickets возвращает страницу обращений всех аккаунтов.
func (h *Handler) AdminListTickets(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	tickets, err := h.service.ListTickets(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list tickets error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		resp = append(resp, toTicketResponse(t))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// AdminCloseTicket закрывает обращение.
func (h *Handler) AdminCloseTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := pathID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.CloseTicket(r.Context(), ticketID); err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("close ticket error", zap.Error(err), zap.Int64("ticketID", ticketID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
