package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/google/uuid"
)

const (
	saleColumns = `id, idempotency_key, items, total, payment_method, customer_id, operator_id, created_at`

	EventTypeSaleCompleted = "sale.completed"
)

// SaleCompletedEvent is the outbox payload written next to every sale.
type SaleCompletedEvent struct {
	SaleID        string               `json:"sale_id"`
	Items         []domain.SaleItem    `json:"items"`
	Total         string               `json:"total"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	CustomerID    *string              `json:"customer_id,omitempty"`
	OperatorID    string               `json:"operator_id,omitempty"`
	CompletedAt   time.Time            `json:"completed_at"`
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	s := &domain.Sale{}
	var (
		itemsJSON  []byte
		customerID sql.NullString
	)
	err := row.Scan(
		&s.ID,
		&s.IdempotencyKey,
		&itemsJSON,
		&s.Total,
		&s.PaymentMethod,
		&customerID,
		&s.OperatorID,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &s.Items); err != nil {
		return nil, fmt.Errorf("unmarshal sale items: %w", err)
	}
	s.CustomerID = stringPtr(customerID)
	return s, nil
}

// CreateSale stores the sale and its outbox event in one transaction. A sale
// whose idempotency key is already stored is not written again and
// ErrDuplicateSale is returned.
func (r *Repository) CreateSale(ctx context.Context, sale *domain.Sale) error {
	itemsJSON, err := json.Marshal(sale.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal sale items: %w", err)
	}

	payload, err := json.Marshal(SaleCompletedEvent{
		SaleID:        sale.ID,
		Items:         sale.Items,
		Total:         sale.Total.StringFixed(2),
		PaymentMethod: sale.PaymentMethod,
		CustomerID:    sale.CustomerID,
		OperatorID:    sale.OperatorID,
		CompletedAt:   sale.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sale event: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO sales (` + saleColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (idempotency_key) DO NOTHING`

	res, err := tx.ExecContext(ctx, query,
		sale.ID,
		sale.IdempotencyKey,
		string(itemsJSON),
		sale.Total.String(),
		string(sale.PaymentMethod),
		nullString(sale.CustomerID),
		sale.OperatorID,
		sale.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert sale rows affected: %w", err)
	}
	if n == 0 {
		return ErrDuplicateSale
	}

	outboxQuery := `INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
	                VALUES ($1, $2, $3, $4, $5)`
	_, err = tx.ExecContext(ctx, outboxQuery,
		uuid.New().String(),
		sale.ID,
		EventTypeSaleCompleted,
		string(payload),
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sale: %w", err)
	}
	return nil
}

// RecordSale is CreateSale for callers that only need the sale to exist: a
// duplicate idempotency key counts as success.
func (r *Repository) RecordSale(ctx context.Context, sale *domain.Sale) error {
	err := r.CreateSale(ctx, sale)
	if errors.Is(err, ErrDuplicateSale) {
		return nil
	}
	return err
}

func (r *Repository) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	s, err := scanSale(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query sale by id: %w", err)
	}
	return s, nil
}

func (r *Repository) GetSaleByIdempotencyKey(ctx context.Context, key string) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE idempotency_key = $1`

	s, err := scanSale(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query sale by idempotency key: %w", err)
	}
	return s, nil
}

func (r *Repository) ListSales(ctx context.Context) ([]*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	sales := make([]*domain.Sale, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sales, nil
}
