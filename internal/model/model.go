// Package model содержит доменные сущности витрины магазина.
package model

import "time"

// Tier описывает уровень аккаунта, определяющий цены и доступные возможности.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierVIP     Tier = "vip"
)

// Role описывает роль аккаунта в системе.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupport  Role = "support"
	RoleAdmin    Role = "admin"
)

// Account представляет аккаунт пользователя витрины.
type Account struct {
	ID          int64
	Email       string
	DisplayName string
	// BalanceCents хранит баланс в копейках, конвертация в рубли выполняется на границе API.
	BalanceCents int64
	Tier         Tier
	Role         Role
	Banned       bool
	DepositMade  bool
	CreatedAt    time.Time
}

// TransactionType описывает тип операции по счёту.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionPurchase   TransactionType = "PURCHASE"
	TransactionRefund     TransactionType = "REFUND"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
)

// TransactionStatus описывает статус операции по счёту.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// Transaction представляет неизменяемую запись журнала операций по счёту.
// Записи только добавляются и никогда не изменяются.
type Transaction struct {
	ID          int64
	AccountID   int64
	AmountCents int64
	Type        TransactionType
	Status      TransactionStatus
	Description string
	// SnapshotCents фиксирует баланс счёта на момент записи операции.
	SnapshotCents  int64
	IdempotencyKey string
	CreatedAt      time.Time
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
	OrderStatusDisputed  OrderStatus = "DISPUTED"
)

// OrderItem описывает позицию заказа с ценой на момент покупки.
type OrderItem struct {
	ProductID  int64
	Title      string
	Quantity   int
	PriceCents int64
}

// Order описывает заказ пользователя.
type Order struct {
	ID         int64
	Reference  string
	AccountID  int64
	TotalCents int64
	Status     OrderStatus
	Items      []OrderItem
	CreatedAt  time.Time
}

// Product описывает товар каталога.
type Product struct {
	ID          int64
	Category    string
	Title       string
	Description string
	PriceCents  int64
	Stock       int
}

// TicketStatus описывает статус обращения в поддержку.
type TicketStatus string

const (
	TicketOpen   TicketStatus = "OPEN"
	TicketClosed TicketStatus = "CLOSED"
)

// Ticket описывает обращение пользователя в поддержку.
type Ticket struct {
	ID        int64
	AccountID int64
	Subject   string
	Status    TicketStatus
	CreatedAt time.Time
}

// TicketMessage описывает сообщение в обращении.
type TicketMessage struct {
	ID        int64
	TicketID  int64
	AuthorID  int64
	Body      string
	CreatedAt time.Time
}

// Balance содержит баланс аккаунта для выдачи наружу.
type Balance struct {
	Current float64 `json:"current"`
	Tier    string  `json:"tier"`
}
