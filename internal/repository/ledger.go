package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mmeshcher/storefront-system/internal/model"
)

const transactionColumns = `id, account_id, amount, type, status, description, balance_snapshot, COALESCE(idempotency_key, ''), created_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.AmountCents, &t.Type, &t.Status, &t.Description, &t.SnapshotCents, &t.IdempotencyKey, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// lockAccount блокирует строку аккаунта на время транзакции.
// Сериализует конкурентные изменения баланса и закрывает гонку lost update.
func lockAccount(ctx context.Context, tx pgx.Tx, accountID int64) (*model.Account, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`,
		accountID,
	)
	return scanAccount(row)
}

func insertTransaction(ctx context.Context, tx pgx.Tx, accountID, amountCents int64, txType model.TransactionType, description string, snapshotCents int64, idempotencyKey string) (*model.Transaction, error) {
	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO transactions (account_id, amount, type, status, description, balance_snapshot, idempotency_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+transactionColumns,
		accountID, amountCents, string(txType), string(model.TransactionCompleted), description, snapshotCents, key,
	)

	t, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

// ApplyDeposit атомарно пополняет баланс аккаунта: блокирует строку аккаунта,
// применяет правило повышения уровня, записывает операцию в журнал и обновляет
// баланс в одной транзакции БД. При повторе запроса с уже известным для этого
// аккаунта ключом идемпотентности возвращается ранее записанная операция без
// второго зачисления; конкурентный повтор, проскочивший проверку, упирается
// в уникальный индекс и возвращает ErrDuplicateRequest.
func (r *PostgresRepository) ApplyDeposit(ctx context.Context, accountID, amountCents int64, description, idempotencyKey string) (*model.Account, *model.Transaction, error) {
	var account *model.Account
	var entry *model.Transaction

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

		if idempotencyKey != "" {
			existing, err := findTransactionByKey(ctx, tx, accountID, idempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				account = acc
				entry = existing
				return tx.Commit(ctx)
			}
		}

		newBalance := acc.BalanceCents + amountCents
		newTier := model.ComputeTier(acc.Tier, amountCents, newBalance)

		entry, err = insertTransaction(ctx, tx, accountID, amountCents, model.TransactionDeposit, description, newBalance, idempotencyKey)
		if err != nil {
			if isIdempotencyConflict(err) {
				return ErrDuplicateRequest
			}
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE accounts SET balance = $2, tier = $3, deposit_made = TRUE WHERE id = $1`,
			accountID, newBalance, string(newTier),
		)
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		acc.BalanceCents = newBalance
		acc.Tier = newTier
		acc.DepositMade = true
		account = acc

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return account, entry, nil
}

// findTransactionByKey ищет ранее записанную операцию аккаунта по ключу
// идемпотентности. Ключ действует в пределах одного аккаунта: одинаковые
// ключи разных аккаунтов — независимые операции.
func findTransactionByKey(ctx context.Context, tx pgx.Tx, accountID int64, key string) (*model.Transaction, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE account_id = $1 AND idempotency_key = $2`,
		accountID, key,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select transaction by key: %w", err)
	}
	return t, nil
}

// isIdempotencyConflict распознаёт нарушение уникального индекса по ключу
// идемпотентности: конкурентная первая вставка с тем же ключом успела
// зафиксироваться между проверкой и вставкой.
func isIdempotencyConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == "idx_transactions_idempotency_key"
}

// ApplyAdjustment атомарно применяет ручную корректировку баланса со знаком.
// В отличие от депозита корректировка не меняет уровень аккаунта.
func (r *PostgresRepository) ApplyAdjustment(ctx context.Context, accountID, amountCents int64, description string) (*model.Account, *model.Transaction, error) {
	var account *model.Account
	var entry *model.Transaction

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

		newBalance := acc.BalanceCents + amountCents
		if newBalance < 0 {
			return ErrInsufficientBalance
		}

		entry, err = insertTransaction(ctx, tx, accountID, amountCents, model.TransactionAdjustment, description, newBalance, "")
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

		acc.BalanceCents = newBalance
		account = acc

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return account, entry, nil
}

// GetTransactionsByAccount возвращает журнал операций аккаунта, новые записи первыми.
func (r *PostgresRepository) GetTransactionsByAccount(ctx context.Context, accountID int64) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE account_id = $1
		 ORDER BY created_at DESC, id DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.AmountCents, &t.Type, &t.Status, &t.Description, &t.SnapshotCents, &t.IdempotencyKey, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
