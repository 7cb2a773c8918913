// Package handler содержит HTTP-обработчики API сервиса витрины.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-system/internal/middleware"
	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/repository"
	"github.com/mmeshcher/storefront-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Authenticate(ctx context.Context, email, displayName string) (*model.Account, error)
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	GetBalance(ctx context.Context, accountID int64) (*model.Balance, error)
	Deposit(ctx context.Context, accountID int64, amount float64, idempotencyKey string) (*model.Account, error)
	AdminAdjust(ctx context.Context, accountID int64, amount float64, description string) (*model.Account, error)
	GetTransactions(ctx context.Context, accountID int64) ([]model.Transaction, error)
	CreateOrder(ctx context.Context, accountID int64, lines []repository.OrderLine) (*model.Order, error)
	GetOrders(ctx context.Context, accountID int64) ([]model.Order, error)
	ListProducts(ctx context.Context, category string) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	CreateTicket(ctx context.Context, accountID int64, subject, body string) (*model.Ticket, error)
	GetTickets(ctx context.Context, accountID int64) ([]model.Ticket, error)
	GetTicketMessages(ctx context.Context, actor *model.Account, ticketID int64) ([]model.TicketMessage, error)
	AddTicketMessage(ctx context.Context, actor *model.Account, ticketID int64, body string) (*model.TicketMessage, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]model.Account, error)
	SetAccountBan(ctx context.Context, accountID int64, banned bool) error
	SetAccountTier(ctx context.Context, accountID int64, tier model.Tier) error
	ListOrders(ctx context.Context, limit, offset int) ([]model.Order, error)
	SetOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	RefundOrder(ctx context.Context, orderID int64) (*model.Order, error)
	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) error
	ListTickets(ctx context.Context, limit, offset int) ([]model.Ticket, error)
	CloseTicket(ctx context.Context, ticketID int64) error
}

// Handler реализует HTTP-обработчики API сервиса витрины.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	roleMiddleware *middleware.RoleMiddleware
	validate       *validator.Validate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		roleMiddleware: middleware.NewRoleMiddleware(s),
		validate:       validator.New(),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

type accountResponse struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	Balance     float64 `json:"balance"`
	Tier        string  `json:"tier"`
	Role        string  `json:"role"`
	Banned      bool    `json:"banned"`
	DepositMade bool    `json:"deposit_made"`
	CreatedAt   string  `json:"created_at"`
}

func toAccountResponse(a *model.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Balance:     float64(a.BalanceCents) / 100,
		Tier:        string(a.Tier),
		Role:        string(a.Role),
		Banned:      a.Banned,
		DepositMade: a.DepositMade,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

type authRequest struct {
	Email       string `json:"email" validate:"required"`
	DisplayName string `json:"display_name" validate:"max=200"`
}

// Authenticate разрешает идентичность во внутренний аккаунт и устанавливает cookie.
// Аккаунт создаётся при первом входе.
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	acc, err := h.service.Authenticate(r.Context(), req.Email, req.DisplayName)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEmail) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("authenticate error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, acc.ID)
	h.writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// GetAccount возвращает аккаунт текущего пользователя.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	acc, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get account error", zap.Error(err), zap.Int64("accountID", accountID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get balance error", zap.Error(err), zap.Int64("accountID", accountID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, balance)
}

type depositRequest struct {
	Amount         float64 `json:"amount" validate:"required"`
	IdempotencyKey string  `json:"idempotency_key" validate:"max=128"`
}

// Deposit пополняет баланс текущего пользователя.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	acc, err := h.service.Deposit(r.Context(), accountID, req.Amount, req.IdempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrAccountNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrAccountBanned):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		case errors.Is(err, repository.ErrDuplicateRequest):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("deposit error", zap.Error(err), zap.Int64("accountID", accountID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

type transactionResponse struct {
	ID          int64   `json:"id"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Description string  `json:"description,omitempty"`
	Balance     float64 `json:"balance"`
	CreatedAt   string  `json:"created_at"`
}

// GetTransactions возвращает журнал операций текущего пользователя.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	transactions, err := h.service.GetTransactions(r.Context(), accountID)
	if err != nil {
		h.logger.Error("get transactions error", zap.Error(err), zap.Int64("accountID", accountID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(transactions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		resp = append(resp, transactionResponse{
			ID:          t.ID,
			Amount:      float64(t.AmountCents) / 100,
			Type:        string(t.Type),
			Status:      string(t.Status),
			Description: t.Description,
			Balance:     float64(t.SnapshotCents) / 100,
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type orderLineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type createOrderRequest struct {
	Items []orderLineRequest `json:"items" validate:"required,min=1,dive"`
}

type orderItemResponse struct {
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderResponse struct {
	ID        int64               `json:"id"`
	Reference string              `json:"reference"`
	Total     float64             `json:"total"`
	Status    string              `json:"status"`
	Items     []orderItemResponse `json:"items,omitempty"`
	CreatedAt string              `json:"created_at"`
}

func toOrderResponse(o model.Order) orderResponse {
	resp := orderResponse{
		ID:        o.ID,
		Reference: o.Reference,
		Total:     float64(o.TotalCents) / 100,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     float64(item.PriceCents) / 100,
		})
	}
	return resp
}

// CreateOrder оформляет покупку с оплатой с баланса текущего пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	lines := make([]repository.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, repository.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.service.CreateOrder(r.Context(), accountID, lines)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyOrder):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrProductNotFound), errors.Is(err, repository.ErrInsufficientStock):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrInsufficientBalance):
			http.Error(w, http.StatusText(http.StatusPaymentRequired), http.StatusPaymentRequired)
		case errors.Is(err, repository.ErrAccountBanned):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		case errors.Is(err, repository.ErrAccountNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("create order error", zap.Error(err), zap.Int64("accountID", accountID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, toOrderResponse(*order))
}

// GetOrders возвращает заказы текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.GetOrders(r.Context(), accountID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("accountID", accountID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type productResponse struct {
	ID          int64   `json:"id"`
	Category    string  `json:"category"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Category:    p.Category,
		Title:       p.Title,
		Description: p.Description,
		Price:       float64(p.PriceCents) / 100,
		Stock:       p.Stock,
	}
}

// ListProducts возвращает каталог товаров.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.logger.Error("list products error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(products) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get product error", zap.Error(err), zap.Int64("productID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toProductResponse(*product))
}
