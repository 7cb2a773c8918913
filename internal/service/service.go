// Package service реализует бизнес-логику сервиса витрины.
package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/notifier"
	"github.com/mmeshcher/storefront-system/internal/repository"
	"github.com/mmeshcher/storefront-system/internal/validation"
)

// ErrInvalidAmount возвращается, если сумма операции отсутствует или некорректна.
var (
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidEmail возвращается при структурно некорректном адресе почты.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidTier возвращается при неизвестном значении уровня аккаунта.
	ErrInvalidTier = errors.New("invalid tier")
	// ErrInvalidOrderStatus возвращается при неизвестном статусе заказа.
	ErrInvalidOrderStatus = errors.New("invalid order status")
	// ErrEmptyOrder возвращается при попытке оформить заказ без позиций.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrTicketAccessDenied возвращается при обращении к чужому тикету без прав поддержки.
	ErrTicketAccessDenied = errors.New("ticket access denied")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	UpsertAccount(ctx context.Context, email, displayName string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]model.Account, error)
	SetAccountBan(ctx context.Context, id int64, banned bool) error
	SetAccountTier(ctx context.Context, id int64, tier model.Tier) error
	ApplyDeposit(ctx context.Context, accountID, amountCents int64, description, idempotencyKey string) (*model.Account, *model.Transaction, error)
	ApplyAdjustment(ctx context.Context, accountID, amountCents int64, description string) (*model.Account, *model.Transaction, error)
	GetTransactionsByAccount(ctx context.Context, accountID int64) ([]model.Transaction, error)
	CreateOrder(ctx context.Context, accountID int64, lines []repository.OrderLine) (*model.Order, error)
	RefundOrder(ctx context.Context, orderID int64) (*model.Order, error)
	SetOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	GetOrdersByAccount(ctx context.Context, accountID int64) ([]model.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]model.Order, error)
	ListProducts(ctx context.Context, category string) ([]model.Product, error)
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) error
	CreateTicket(ctx context.Context, accountID int64, subject, body string) (*model.Ticket, error)
	GetTicketByID(ctx context.Context, id int64) (*model.Ticket, error)
	AddTicketMessage(ctx context.Context, ticketID, authorID int64, body string) (*model.TicketMessage, error)
	GetTicketsByAccount(ctx context.Context, accountID int64) ([]model.Ticket, error)
	ListTickets(ctx context.Context, limit, offset int) ([]model.Ticket, error)
	GetTicketMessages(ctx context.Context, ticketID int64) ([]model.TicketMessage, error)
	CloseTicket(ctx context.Context, ticketID int64) error
}

// TicketNotifier описывает контракт уведомления чата поддержки.
type TicketNotifier interface {
	NotifyTicket(ctx context.Context, event notifier.TicketEvent) error
}

// Service содержит бизнес-логику сервиса витрины.
type Service struct {
	repo     Repository
	notifier TicketNotifier
	logger   *zap.Logger
}

// NewService создаёт новый сервис с указанным репозиторием и клиентом уведомлений.
func NewService(repo Repository, ticketNotifier TicketNotifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		notifier: ticketNotifier,
		logger:   logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// ToCents конвертирует сумму в рублях в копейки с округлением до копейки.
// Отклоняет NaN и бесконечности, чтобы неконечное значение не доходило до
// преобразования float64 в int64 с платформозависимым результатом.
func ToCents(amount float64) (int64, bool) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, false
	}
	return int64(math.Round(amount * 100)), true
}

// Authenticate разрешает внешнюю идентичность в аккаунт: при первом входе
// аккаунт создаётся, при повторном — обновляется отображаемое имя.
func (s *Service) Authenticate(ctx context.Context, email, displayName string) (*model.Account, error) {
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	return s.repo.UpsertAccount(ctx, email, displayName)
}

// GetAccount возвращает аккаунт по идентификатору.
func (s *Service) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	return s.repo.GetAccountByID(ctx, id)
}

// GetBalance возвращает баланс аккаунта в виде структуры model.Balance.
func (s *Service) GetBalance(ctx context.Context, accountID int64) (*model.Balance, error) {
	acc, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &model.Balance{
		Current: float64(acc.BalanceCents) / 100,
		Tier:    string(acc.Tier),
	}, nil
}

// Deposit пополняет баланс аккаунта. При пустом ключе идемпотентности повтор
// запроса приводит к повторному зачислению: дедупликация выполняется только
// по явно переданному ключу.
func (s *Service) Deposit(ctx context.Context, accountID int64, amount float64, idempotencyKey string) (*model.Account, error) {
	cents, ok := ToCents(amount)
	if !ok || cents <= 0 {
		return nil, ErrInvalidAmount
	}

	acc, _, err := s.repo.ApplyDeposit(ctx, accountID, cents, "wallet deposit", idempotencyKey)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// AdminAdjust применяет ручную корректировку баланса со знаком.
// Корректировка не участвует в правиле повышения уровня.
func (s *Service) AdminAdjust(ctx context.Context, accountID int64, amount float64, description string) (*model.Account, error) {
	cents, ok := ToCents(amount)
	if !ok || cents == 0 {
		return nil, ErrInvalidAmount
	}

	acc, _, err := s.repo.ApplyAdjustment(ctx, accountID, cents, description)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// GetTransactions возвращает журнал операций аккаунта.
func (s *Service) GetTransactions(ctx context.Context, accountID int64) ([]model.Transaction, error) {
	return s.repo.GetTransactionsByAccount(ctx, accountID)
}

// CreateOrder оформляет покупку с оплатой с баланса аккаунта.
func (s *Service) CreateOrder(ctx context.Context, accountID int64, lines []repository.OrderLine) (*model.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, line := range lines {
		if line.ProductID <= 0 || line.Quantity <= 0 {
			return nil, ErrEmptyOrder
		}
	}
	return s.repo.CreateOrder(ctx, accountID, lines)
}

// GetOrders возвращает заказы аккаунта.
func (s *Service) GetOrders(ctx context.Context, accountID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByAccount(ctx, accountID)
}

// ListProducts возвращает каталог товаров.
func (s *Service) ListProducts(ctx context.Context, category string) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, category)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

// CreateTicket создаёт обращение в поддержку и асинхронно уведомляет чат.
// Сбой доставки уведомления никогда не приводит к ошибке исходного запроса.
func (s *Service) CreateTicket(ctx context.Context, accountID int64, subject, body string) (*model.Ticket, error) {
	acc, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ticket, err := s.repo.CreateTicket(ctx, accountID, subject, body)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		event := notifier.TicketEvent{
			TicketID:  ticket.ID,
			AccountID: accountID,
			Email:     acc.Email,
			Subject:   subject,
		}
		go func() {
			notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := s.notifier.NotifyTicket(notifyCtx, event); err != nil {
				s.logger.Warn("ticket notification failed", zap.Error(err), zap.Int64("ticketID", ticket.ID))
			}
		}()
	}

	return ticket, nil
}

// GetTickets возвращает обращения аккаунта.
func (s *Service) GetTickets(ctx context.Context, accountID int64) ([]model.Ticket, error) {
	return s.repo.GetTicketsByAccount(ctx, accountID)
}

// GetTicketMessages возвращает сообщения обращения с проверкой доступа:
// клиент видит только свои обращения, поддержка и админ — любые.
func (s *Service) GetTicketMessages(ctx context.Context, actor *model.Account, ticketID int64) ([]model.TicketMessage, error) {
	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canAccessTicket(actor, ticket) {
		return nil, ErrTicketAccessDenied
	}
	return s.repo.GetTicketMessages(ctx, ticketID)
}

// AddTicketMessage добавляет сообщение в обращение с той же проверкой доступа.
func (s *Service) AddTicketMessage(ctx context.Context, actor *model.Account, ticketID int64, body string) (*model.TicketMessage, error) {
	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canAccessTicket(actor, ticket) {
		return nil, ErrTicketAccessDenied
	}
	return s.repo.AddTicketMessage(ctx, ticketID, actor.ID, body)
}

func canAccessTicket(actor *model.Account, ticket *model.Ticket) bool {
	if actor == nil {
		return false
	}
	if actor.Role == model.RoleSupport || actor.Role == model.RoleAdmin {
		return true
	}
	return ticket.AccountID == actor.ID
}
