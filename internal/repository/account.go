package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront-system/internal/model"
)

const accountColumns = `id, email, display_name, balance, tier, role, banned, deposit_made, created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.BalanceCents, &a.Tier, &a.Role, &a.Banned, &a.DepositMade, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

// UpsertAccount создаёт аккаунт при первой аутентификации или обновляет отображаемое имя.
func (r *PostgresRepository) UpsertAccount(ctx context.Context, email, displayName string) (*model.Account, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (email, display_name) VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET display_name = EXCLUDED.display_name
		 RETURNING `+accountColumns,
		email, displayName,
	)

	a, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("upsert account: %w", err)
	}
	return a, nil
}

// GetAccountByID возвращает аккаунт по идентификатору.
func (r *PostgresRepository) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`,
		id,
	)
	return scanAccount(row)
}

// ListAccounts возвращает страницу аккаунтов для админ-панели.
func (r *PostgresRepository) ListAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+`
		 FROM accounts
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.DisplayName, &a.BalanceCents, &a.Tier, &a.Role, &a.Banned, &a.DepositMade, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return accounts, nil
}

// SetAccountBan выставляет флаг блокировки аккаунта.
func (r *PostgresRepository) SetAccountBan(ctx context.Context, id int64, banned bool) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET banned = $2 WHERE id = $1`,
		id, banned,
	)
	if err != nil {
		return fmt.Errorf("update ban flag: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetAccountTier выставляет уровень аккаунта вручную. Используется только админом,
// правило автоматического повышения при депозите здесь не применяется.
func (r *PostgresRepository) SetAccountTier(ctx context.Context, id int64, tier model.Tier) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET tier = $2 WHERE id = $1`,
		id, string(tier),
	)
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
