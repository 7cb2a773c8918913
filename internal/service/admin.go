package service

import (
	"context"

	"github.com/mmeshcher/storefront-system/internal/model"
)

// Операции админ-панели. Проверка роли выполняется middleware на границе HTTP,
// сервис отвечает только за валидацию значений и делегирование в репозиторий.

// ListAccounts возвращает страницу аккаунтов.
func (s *Service) ListAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAccounts(ctx, limit, offset)
}

// SetAccountBan блокирует или разблокирует аккаунт.
func (s *Service) SetAccountBan(ctx context.Context, accountID int64, banned bool) error {
	return s.repo.SetAccountBan(ctx, accountID, banned)
}

// SetAccountTier выставляет уровень аккаунта вручную, включая vip.
func (s *Service) SetAccountTier(ctx context.Context, accountID int64, tier model.Tier) error {
	switch tier {
	case model.TierBasic, model.TierPremium, model.TierVIP:
	default:
		return ErrInvalidTier
	}
	return s.repo.SetAccountTier(ctx, accountID, tier)
}

// ListOrders возвращает страницу заказов всех аккаунтов.
func (s *Service) ListOrders(ctx context.Context, limit, offset int) ([]model.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListOrders(ctx, limit, offset)
}

// SetOrderStatus перезаписывает статус заказа. Допустимость перехода
// между статусами не проверяется.
func (s *Service) SetOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	switch status {
	case model.OrderStatusPending, model.OrderStatusCompleted, model.OrderStatusCancelled,
		model.OrderStatusRefunded, model.OrderStatusDisputed:
	default:
		return ErrInvalidOrderStatus
	}
	return s.repo.SetOrderStatus(ctx, orderID, status)
}

// RefundOrder возвращает средства по завершённому заказу.
func (s *Service) RefundOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	return s.repo.RefundOrder(ctx, orderID)
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if p.Title == "" || p.PriceCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct обновляет карточку товара.
func (s *Service) UpdateProduct(ctx context.Context, p model.Product) error {
	if p.Title == "" || p.PriceCents <= 0 {
		return ErrInvalidAmount
	}
	return s.repo.UpdateProduct(ctx, p)
}

// ListTickets возвращает страницу обращений всех аккаунтов.
func (s *Service) ListTickets(ctx context.Context, limit, offset int) ([]model.Ticket, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTickets(ctx, limit, offset)
}

// CloseTicket закрывает обращение.
func (s *Service) CloseTicket(ctx context.Context, ticketID int64) error {
	return s.repo.CloseTicket(ctx, ticketID)
}
