package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront-system/internal/model"
)

// OrderLine описывает запрошенную позицию заказа до сверки с каталогом.
type OrderLine struct {
	ProductID int64
	Quantity  int
}

// CreateOrder атомарно оформляет покупку: сверяет позиции с каталогом,
// списывает сумму с заблокированного счёта, записывает операцию PURCHASE
// в журнал и создаёт заказ с позициями по ценам на момент покупки.
func (r *PostgresRepository) CreateOrder(ctx context.Context, accountID int64, lines []OrderLine) (*model.Order, error) {
	var order *model.Order

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		acc, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		if acc.Banned {
			return ErrAccountBanned
		}

		items, totalCents, err := resolveOrderLines(ctx, tx, lines)
		if err != nil {
			return err
		}

		if totalCents > acc.BalanceCents {
			return ErrInsufficientBalance
		}

		newBalance := acc.BalanceCents - totalCents

		reference := uuid.NewString()
		var o model.Order
		err = tx.QueryRow(ctx,
			`INSERT INTO orders (reference, account_id, total, status)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, reference, account_id, total, status, created_at`,
			reference, accountID, totalCents, string(model.OrderStatusPending),
		).Scan(&o.ID, &o.Reference, &o.AccountID, &o.TotalCents, &o.Status, &o.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range items {
			_, err = tx.Exec(ctx,
				`INSERT INTO order_items (order_id, product_id, title, quantity, price)
				 VALUES ($1, $2, $3, $4, $5)`,
				o.ID, item.ProductID, item.Title, item.Quantity, item.PriceCents,
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		_, err = insertTransaction(ctx, tx, accountID, -totalCents, model.TransactionPurchase,
			fmt.Sprintf("order %s", reference), newBalance, "")
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE accounts SET balance = $2 WHERE id = $1`,
			accountID, newBalance,
		)
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		o.Items = items
		order = &o

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// resolveOrderLines сверяет позиции с каталогом и возвращает позиции
// с зафиксированными ценами и общую сумму. Остаток товара проверяется,
// но не уменьшается: каталог остаётся статичным.
func resolveOrderLines(ctx context.Context, tx pgx.Tx, lines []OrderLine) ([]model.OrderItem, int64, error) {
	items := make([]model.OrderItem, 0, len(lines))
	var total int64

	for _, line := range lines {
		var title string
		var priceCents int64
		var stock int
		err := tx.QueryRow(ctx,
			`SELECT title, price, stock FROM products WHERE id = $1`,
			line.ProductID,
		).Scan(&title, &priceCents, &stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, 0, ErrProductNotFound
			}
			return nil, 0, fmt.Errorf("select product: %w", err)
		}

		if line.Quantity > stock {
			return nil, 0, ErrInsufficientStock
		}

		items = append(items, model.OrderItem{
			ProductID:  line.ProductID,
			Title:      title,
			Quantity:   line.Quantity,
			PriceCents: priceCents,
		})
		total += priceCents * int64(line.Quantity)
	}

	return items, total, nil
}

// RefundOrder возвращает средства по завершённому заказу: помечает заказ
// REFUNDED и зачисляет сумму обратно на счёт операцией REFUND.
// Возврат не влияет на уровень аккаунта.
func (r *PostgresRepository) RefundOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	var order *model.Order

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var o model.Order
		err = tx.QueryRow(ctx,
			`SELECT id, reference, account_id, total, status, created_at
			 FROM orders WHERE id = $1 FOR UPDATE`,
			orderID,
		).Scan(&o.ID, &o.Reference, &o.AccountID, &o.TotalCents, &o.Status, &o.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("select order: %w", err)
		}

		if o.Status != model.OrderStatusCompleted {
			return ErrOrderNotRefundable
		}

		acc, err := lockAccount(ctx, tx, o.AccountID)
		if err != nil {
			return err
		}

		newBalance := acc.BalanceCents + o.TotalCents

		_, err = insertTransaction(ctx, tx, o.AccountID, o.TotalCents, model.TransactionRefund,
			fmt.Sprintf("refund for order %s", o.Reference), newBalance, "")
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE accounts SET balance = $2 WHERE id = $1`,
			o.AccountID, newBalance,
		)
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE orders SET status = $2 WHERE id = $1`,
			o.ID, string(model.OrderStatusRefunded),
		)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		o.Status = model.OrderStatusRefunded
		order = &o

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// SetOrderStatus перезаписывает статус заказа без проверки допустимости
// перехода. Унаследованное поведение: любой статус может быть записан
// поверх любого другого.
func (r *PostgresRepository) SetOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		orderID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// GetOrdersByAccount возвращает заказы аккаунта с позициями, новые первыми.
func (r *PostgresRepository) GetOrdersByAccount(ctx context.Context, accountID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, reference, account_id, total, status, created_at
		 FROM orders
		 WHERE account_id = $1
		 ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}

	return r.attachOrderItems(ctx, orders)
}

// ListOrders возвращает страницу заказов всех аккаунтов для админ-панели.
func (r *PostgresRepository) ListOrders(ctx context.Context, limit, offset int) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, reference, account_id, total, status, created_at
		 FROM orders
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}

	return r.attachOrderItems(ctx, orders)
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.Reference, &o.AccountID, &o.TotalCents, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func (r *PostgresRepository) attachOrderItems(ctx context.Context, orders []model.Order) ([]model.Order, error) {
	for i := range orders {
		rows, err := r.pool.Query(ctx,
			`SELECT product_id, title, quantity, price
			 FROM order_items
			 WHERE order_id = $1
			 ORDER BY id`,
			orders[i].ID,
		)
		if err != nil {
			return nil, fmt.Errorf("select order items: %w", err)
		}

		for rows.Next() {
			var item model.OrderItem
			if err := rows.Scan(&item.ProductID, &item.Title, &item.Quantity, &item.PriceCents); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan order item: %w", err)
			}
			orders[i].Items = append(orders[i].Items, item)
		}
		rows.Close()

		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows error: %w", err)
		}
	}

	return orders, nil
}
