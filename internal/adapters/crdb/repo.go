package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/observability"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() { observability.DBTxDuration.Observe(time.Since(start).Seconds()) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		if pgCode(err) == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if pgCode(err) == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

const intentColumns = `id, flow_id, user_id, gateway_order_id, payment_id, amount, currency, status,
	draft_json, attempts, last_error, created_at, updated_at`

func scanIntent(row pgx.Row) (*domain.PaymentIntent, error) {
	var in domain.PaymentIntent
	var status string
	var draft []byte
	err := row.Scan(&in.ID, &in.FlowID, &in.UserID, &in.GatewayOrderID, &in.PaymentID, &in.Amount, &in.Currency,
		&status, &draft, &in.Attempts, &in.LastError, &in.CreatedAt, &in.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	in.Status = domain.IntentStatus(status)
	if err := json.Unmarshal(draft, &in.Draft); err != nil {
		return nil, errors.Wrapf(err, "decode draft of intent %s", in.ID)
	}
	return &in, nil
}

func (r *Repository) CreateIntent(ctx context.Context, in domain.PaymentIntent) error {
	draft, err := json.Marshal(in.Draft)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO payment_intents (id, flow_id, user_id, gateway_order_id, amount, currency, status, draft_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`, in.ID, in.FlowID, in.UserID, in.GatewayOrderID, in.Amount, in.Currency, string(domain.IntentCreated), draft, in.CreatedAt)
	if pgCode(err) == UniqueViolationCode {
		return errors.Wrapf(domain.ErrConflict, "intent for order %s", in.GatewayOrderID)
	}
	return err
}

func (r *Repository) GetIntent(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	return scanIntent(r.pool.QueryRow(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE id = $1`, id))
}

func (r *Repository) IntentByOrder(ctx context.Context, gatewayOrderID string) (*domain.PaymentIntent, error) {
	return scanIntent(r.pool.QueryRow(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE gateway_order_id = $1`, gatewayOrderID))
}

// MarkCaptured moves CREATED or EXPIRED to CAPTURED. An expired intent can still
// be captured because the gateway took the money.
func (r *Repository) MarkCaptured(ctx context.Context, id uuid.UUID, paymentID string) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE payment_intents SET status = 'CAPTURED', payment_id = $2, updated_at = now()
		WHERE id = $1 AND status IN ('CREATED', 'EXPIRED')
	`, id, paymentID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// MarkBooked closes the intent and queues booking.confirmed in one transaction.
func (r *Repository) MarkBooked(ctx context.Context, in domain.PaymentIntent, b domain.Booking) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE payment_intents SET status = 'BOOKED', updated_at = now()
			WHERE id = $1 AND status = 'CAPTURED'
		`, in.ID)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return errors.Wrapf(domain.ErrConflict, "intent %s is not captured", in.ID)
		}
		return r.InsertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "booking",
			AggregateID:   in.ID,
			EventType:     domain.EventBookingConfirmed,
			Payload:       payload,
			DedupeKey:     domain.EventBookingConfirmed + ":" + in.ID.String(),
		})
	})
}

func (r *Repository) RecordFailure(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE payment_intents SET attempts = attempts + 1, last_error = $2, updated_at = now()
		WHERE id = $1
	`, id, reason)
	return err
}

func (r *Repository) CapturedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PaymentIntent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+intentColumns+` FROM payment_intents
		WHERE status = 'CAPTURED' AND updated_at < $1
		ORDER BY updated_at ASC LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentIntent
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

func (r *Repository) ExpireCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE payment_intents SET status = 'EXPIRED', updated_at = now()
		WHERE status = 'CREATED' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
