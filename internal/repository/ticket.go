package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront-system/internal/model"
)

// CreateTicket создаёт обращение в поддержку вместе с первым сообщением.
func (r *PostgresRepository) CreateTicket(ctx context.Context, accountID int64, subject, body string) (*model.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var t model.Ticket
	err = tx.QueryRow(ctx,
		`INSERT INTO tickets (account_id, subject, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, account_id, subject, status, created_at`,
		accountID, subject, string(model.TicketOpen),
	).Scan(&t.ID, &t.AccountID, &t.Subject, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO ticket_messages (ticket_id, author_id, body) VALUES ($1, $2, $3)`,
		t.ID, accountID, body,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ticket message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &t, nil
}

// GetTicketByID возвращает обращение по идентификатору.
func (r *PostgresRepository) GetTicketByID(ctx context.Context, id int64) (*model.Ticket, error) {
	var t model.Ticket
	err := r.pool.QueryRow(ctx,
		`SELECT id, account_id, subject, status, created_at FROM tickets WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.AccountID, &t.Subject, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("select ticket: %w", err)
	}
	return &t, nil
}

// AddTicketMessage добавляет сообщение в обращение.
func (r *PostgresRepository) AddTicketMessage(ctx context.Context, ticketID, authorID int64, body string) (*model.TicketMessage, error) {
	var m model.TicketMessage
	err := r.pool.QueryRow(ctx,
		`INSERT INTO ticket_messages (ticket_id, author_id, body)
		 VALUES ($1, $2, $3)
		 RETURNING id, ticket_id, author_id, body, created_at`,
		ticketID, authorID, body,
	).Scan(&m.ID, &m.TicketID, &m.AuthorID, &m.Body, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert ticket message: %w", err)
	}
	return &m, nil
}

// GetTicketsByAccount возвращает обращения аккаунта, новые первыми.
func (r *PostgresRepository) GetTicketsByAccount(ctx context.Context, accountID int64) ([]model.Ticket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, subject, status, created_at
		 FROM tickets
		 WHERE account_id = $1
		 ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("select tickets: %w", err)
	}
	defer rows.Close()

	return collectTickets(rows)
}

// ListTickets возвращает страницу обращений всех аккаунтов для админ-панели.
func (r *PostgresRepository) ListTickets(ctx context.Context, limit, offset int) ([]model.Ticket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, subject, status, created_at
		 FROM tickets
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("select tickets: %w", err)
	}
	defer rows.Close()

	return collectTickets(rows)
}

func collectTickets(rows pgx.Rows) ([]model.Ticket, error) {
	var tickets []model.Ticket
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Subject, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tickets, nil
}

// GetTicketMessages возвращает сообщения обращения в порядке создания.
func (r *PostgresRepository) GetTicketMessages(ctx context.Context, ticketID int64) ([]model.TicketMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, ticket_id, author_id, body, created_at
		 FROM ticket_messages
		 WHERE ticket_id = $1
		 ORDER BY created_at, id`,
		ticketID,
	)
	if err != nil {
		return nil, fmt.Errorf("select ticket messages: %w", err)
	}
	defer rows.Close()

	var messages []model.TicketMessage
	for rows.Next() {
		var m model.TicketMessage
		if err := rows.Scan(&m.ID, &m.TicketID, &m.AuthorID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}

// CloseTicket переводит обращение в статус CLOSED.
func (r *PostgresRepository) CloseTicket(ctx context.Context, ticketID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE tickets SET status = $2 WHERE id = $1`,
		ticketID, string(model.TicketClosed),
	)
	if err != nil {
		return fmt.Errorf("update ticket status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}
