package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-system/internal/middleware"
	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/repository"
	"github.com/mmeshcher/storefront-system/internal/service"
)

type stubService struct {
	authAccount *model.Account
	authErr     error

	account    *model.Account
	accountErr error

	balanceResp *model.Balance
	balanceErr  error

	depositResp *model.Account
	depositErr  error

	adjustResp *model.Account
	adjustErr  error

	transactionsResp []model.Transaction
	transactionsErr  error

	orderResp  *model.Order
	orderErr   error
	ordersResp []model.Order
	ordersErr  error

	productsResp []model.Product
	productResp  *model.Product
	productErr   error

	ticketResp  *model.Ticket
	ticketErr   error
	ticketsResp []model.Ticket

	messagesResp []model.TicketMessage
	messageResp  *model.TicketMessage
	messageErr   error

	accountsResp []model.Account

	setBanErr      error
	setTierErr     error
	setStatusErr   error
	refundResp     *model.Order
	refundErr      error
	closeTicketErr error
	updateErr      error
}

func (s *stubService) Authenticate(ctx context.Context, email, displayName string) (*model.Account, error) {
	return s.authAccount, s.authErr
}

func (s *stubService) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	return s.account, s.accountErr
}

func (s *stubService) GetBalance(ctx context.Context, accountID int64) (*model.Balance, error) {
	return s.balanceResp, s.balanceErr
}

func (s *stubService) Deposit(ctx context.Context, accountID int64, amount float64, idempotencyKey string) (*model.Account, error) {
	return s.depositResp, s.depositErr
}

func (s *stubService) AdminAdjust(ctx context.Context, accountID int64, amount float64, description string) (*model.Account, error) {
	return s.adjustResp, s.adjustErr
}

func (s *stubService) GetTransactions(ctx context.Context, accountID int64) ([]model.Transaction, error) {
	return s.transactionsResp, s.transactionsErr
}

func (s *stubService) CreateOrder(ctx context.Context, accountID int64, lines []repository.OrderLine) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubService) GetOrders(ctx context.Context, accountID int64) ([]model.Order, error) {
	return s.ordersResp, s.ordersErr
}

func (s *stubService) ListProducts(ctx context.Context, category string) ([]model.Product, error) {
	return s.productsResp, nil
}

func (s *stubService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.productResp, s.productErr
}

func (s *stubService) CreateTicket(ctx context.Context, accountID int64, subject, body string) (*model.Ticket, error) {
	return s.ticketResp, s.ticketErr
}

func (s *stubService) GetTickets(ctx context.Context, accountID int64) ([]model.Ticket, error) {
	return s.ticketsResp, nil
}

func (s *stubService) GetTicketMessages(ctx context.Context, actor *model.Account, ticketID int64) ([]model.TicketMessage, error) {
	return s.messagesResp, s.messageErr
}

func (s *stubService) AddTicketMessage(ctx context.Context, actor *model.Account, ticketID int64, body string) (*model.TicketMessage, error) {
	return s.messageResp, s.messageErr
}

func (s *stubService) ListAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	return s.accountsResp, nil
}

func (s *stubService) SetAccountBan(ctx context.Context, accountID int64, banned bool) error {
	return s.setBanErr
}

func (s *stubService) SetAccountTier(ctx context.Context, accountID int64, tier model.Tier) error {
	return s.setTierErr
}

func (s *stubService) ListOrders(ctx context.Context, limit, offset int) ([]model.Order, error) {
	return s.ordersResp, s.ordersErr
}

func (s *stubService) SetOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	return s.setStatusErr
}

func (s *stubService) RefundOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	return s.refundResp, s.refundErr
}

func (s *stubService) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	return &p, nil
}

func (s *stubService) UpdateProduct(ctx context.Context, p model.Product) error {
	return s.updateErr
}

func (s *stubService) ListTickets(ctx context.Context, limit, offset int) ([]model.Ticket, error) {
	return s.ticketsResp, nil
}

func (s *stubService) CloseTicket(ctx context.Context, ticketID int64) error {
	return s.closeTicketErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

// authedRequest подписывает запрос cookie авторизации для указанного аккаунта.
func authedRequest(t *testing.T, h *Handler, req *http.Request, accountID int64) *http.Request {
	t.Helper()

	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, accountID)
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}
	req.AddCookie(cookies[0])
	return req
}

func TestAuthenticate_Success(t *testing.T) {
	svc := &stubService{
		authAccount: &model.Account{
			ID:    42,
			Email: "user@example.com",
			Tier:  model.TierBasic,
			Role:  model.RoleCustomer,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(authRequest{
		Email:       "user@example.com",
		DisplayName: "User",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/auth", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Authenticate(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("auth cookie was not set")
	}
}

func TestAuthenticate_BadEmail(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidEmail,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(authRequest{Email: "broken"})

	req := httptest.NewRequest(http.MethodPost, "/api/user/auth", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Authenticate(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestDeposit_Success(t *testing.T) {
	svc := &stubService{
		depositResp: &model.Account{
			ID:           1,
			BalanceCents: 150_00,
			Tier:         model.TierBasic,
			Role:         model.RoleCustomer,
			DepositMade:  true,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(depositRequest{Amount: 150})

	req := httptest.NewRequest(http.MethodPost, "/api/user/balance/deposit", bytes.NewReader(body))
	req = authedRequest(t, h, req, 1)
	rec := httptest.NewRecorder()

	handlerWithAuth := h.authMiddleware.Middleware(http.HandlerFunc(h.Deposit))
	handlerWithAuth.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp accountResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Balance != 150 {
		t.Fatalf("balance = %v, want 150", resp.Balance)
	}
	if resp.Tier != string(model.TierBasic) {
		t.Fatalf("tier = %q, want %q", resp.Tier, model.TierBasic)
	}
}

func TestDeposit_PromotedToPremium(t *testing.T) {
	svc := &stubService{
		depositResp: &model.Account{
			ID:           1,
			BalanceCents: 850_00,
			Tier:         model.TierPremium,
			DepositMade:  true,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(depositRequest{Amount: 700})

	req := httptest.NewRequest(http.MethodPost, "/api/user/balance/deposit", bytes.NewReader(body))
	req = authedRequest(t, h, req, 1)
	rec := httptest.NewRecorder()

	h.authMiddleware.Middleware(http.HandlerFunc(h.Deposit)).ServeHTTP(rec, req)

	var resp accountResponse
	if err := json.NewDecoder(rec.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Tier != string(model.TierPremium) {
		t.Fatalf("tier = %q, want %q", resp.Tier, model.TierPremium)
	}
	if resp.Balance != 850 {
		t.Fatalf("balance = %v, want 850", resp.Balance)
	}
}

func TestDeposit_InvalidAmount(t *testing.T) {
	svc := &stubService{
		depositErr: service.ErrInvalidAmount,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(depositRequest{Amount: -50})

	req := httptest.NewRequest(http.MethodPost, "/api/user/balance/deposit", bytes.NewReader(body))
	req = authedRequest(t, h, req, 1)
	rec := httptest.NewRecorder()

	h.authMiddleware.Middleware(http.HandlerFunc(h.Deposit)).ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestDeposit_BannedAccount(t *testing.T) {
	svc := &stubService{
		depositErr: repository.ErrAccountBanned,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(depositRequest{Amount: 100})

	req := httptest.NewRequest(http.MethodPost, "/api/user/balance/deposit", bytes.NewReader(body))
	req = authedRequest(t, h, req, 1)
	rec := httptest.NewRecorder()

	h.authMiddleware.Middleware(http.HandlerFunc(h.Deposit)).ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusForbidden)
	}
}

func TestDeposit_Unauthorized(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(depositRequest{Amount: 100})

	req := httptest.NewRequest(http.MethodPost, "/api/user/balance/deposit", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.authMiddleware.Middleware(http.HandlerFunc(h.Deposit)).ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestDeposit_DuplicateKeyConflict(t *testing.T) {
	// Конкурентный повтор с тем же ключом идемпотентности отвечает 409,
	// а не внутренней ошибкой.
	svc := &stubService{
		depositErr: repository.ErrDuplicateRequest,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(depositRequest{Amount: 100, IdempotencyKey: "replay-1"})

	req := httptest.NewRequest(http.MethodPost, "/api/user/balance/deposit", bytes.NewReader(body))
	req = authedRequest(t, h, req, 1)
	rec := httptest.NewRecorder()

	h.authMiddleware.Middleware(http.HandlerFunc(h.Deposit)).ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}

func TestGetTransactions_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/user/transactions", nil)
	req = authedRequest(t, h, req, 1)
	rec := httptest.NewRecorder()

	h.authMiddleware.Middleware(http.HandlerFunc(h.GetTransactions)).ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusNoContent)
	}
}

func TestCreateOrder_InsufficientBalance(t *testing.T) {
	svc := &stubService{
		orderErr: repository.ErrInsufficientBalance,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createOrderRequest{
		Items: []orderLineRequest{{ProductID: 1, Quantity: 2}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/orders", bytes.NewReader(body))
	req = authedRequest(t, h, req, 1)
	rec := httptest.NewRecorder()

	h.authMiddleware.Middleware(http.HandlerFunc(h.CreateOrder)).ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusPaymentRequired)
	}
}

func TestCreateOrder_Success(t *testing.T) {
	svc := &stubService{
		orderResp: &model.Order{
			ID:         10,
			Reference:  "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			TotalCents: 55_00,
			Status:     model.OrderStatusPending,
			Items: []model.OrderItem{
				{ProductID: 1, Title: "item", Quantity: 2, PriceCents: 27_50},
			},
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createOrderRequest{
		Items: []orderLineRequest{{ProductID: 1, Quantity: 2}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/orders", bytes.NewReader(body))
	req = authedRequest(t, h, req, 1)
	rec := httptest.NewRecorder()

	h.authMiddleware.Middleware(http.HandlerFunc(h.CreateOrder)).ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp orderResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 55 {
		t.Fatalf("total = %v, want 55", resp.Total)
	}
	if resp.Status != string(model.OrderStatusPending) {
		t.Fatalf("status = %q, want %q", resp.Status, model.OrderStatusPending)
	}
}

func TestListProducts_JSONResponse(t *testing.T) {
	svc := &stubService{
		productsResp: []model.Product{
			{ID: 1, Category: "accounts", Title: "starter pack", PriceCents: 9_99},
		},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()

	h.ListProducts(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var resp []productResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Price != 9.99 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestListProducts_EmptyNoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()

	h.ListProducts(rec, req)

	if rec.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusNoContent)
	}
}
