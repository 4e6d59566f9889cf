package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByReference(ctx context.Context, reference string) (*Payment, error)

	// UpdateStatus sets the status of the payment with reference and reports
	// whether it changed.
	UpdateStatus(ctx context.Context, reference string, status Status, paidAt *time.Time) (bool, error)

	// SaveWebhook records a provider event, one row per event id. handled
	// reports that a signed delivery of the event was already processed.
	// A failed or unsigned earlier delivery never blocks a later signed one.
	SaveWebhook(ctx context.Context, provider string, evt WebhookEvent) (webhookID int64, handled bool, err error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	meta := p.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO payments (
			reference, user_id, order_id, email, amount, currency,
			checkout_type, status, authorization_url, access_code, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`,
		p.Reference,
		p.UserID,
		p.OrderID,
		p.Email,
		p.Amount,
		p.Currency,
		p.CheckoutType,
		p.Status,
		p.AuthorizationURL,
		p.AccessCode,
		metaJSON,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to save payment",
			zap.String("layer", "repository"),
			zap.String("reference", p.Reference),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	var (
		p        Payment
		userID   sql.NullInt64
		orderID  sql.NullString
		authURL  sql.NullString
		access   sql.NullString
		metaJSON []byte
		paidAt   sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, reference, user_id, order_id, email, amount, currency, checkout_type,
		       status, authorization_url, access_code, metadata, paid_at, created_at, updated_at
		FROM payments
		WHERE reference = $1
	`, reference).Scan(
		&p.ID, &p.Reference, &userID, &orderID, &p.Email, &p.Amount, &p.Currency, &p.CheckoutType,
		&p.Status, &authURL, &access, &metaJSON, &paidAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		uid := uint(userID.Int64)
		p.UserID = &uid
	}
	if orderID.Valid {
		p.OrderID = &orderID.String
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	p.AuthorizationURL = authURL.String
	p.AccessCode = access.String
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &p.Metadata); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *repository) UpdateStatus(ctx context.Context, reference string, status Status, paidAt *time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $1,
		    paid_at = COALESCE($2, paid_at),
		    updated_at = NOW()
		WHERE reference = $3 AND status <> $1
	`, status, paidAt, reference)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *repository) SaveWebhook(ctx context.Context, provider string, evt WebhookEvent) (int64, bool, error) {
	// An unsigned row never overwrites a signed one.
	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_type,
		event_id,
		reference,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (provider, event_id)
	DO UPDATE SET
		signature_valid = payment_webhooks.signature_valid OR EXCLUDED.signature_valid,
		event_type = CASE WHEN payment_webhooks.signature_valid THEN payment_webhooks.event_type ELSE EXCLUDED.event_type END,
		reference  = CASE WHEN payment_webhooks.signature_valid THEN payment_webhooks.reference ELSE EXCLUDED.reference END,
		payload    = CASE WHEN payment_webhooks.signature_valid THEN payment_webhooks.payload ELSE EXCLUDED.payload END
	RETURNING id, (signature_valid AND processed_at IS NOT NULL) AS handled;
	`

	var (
		id      int64
		handled bool
	)
	err := r.db.QueryRowContext(
		ctx,
		q,
		provider,
		evt.Type,
		evt.EventID,
		evt.Reference,
		evt.SignatureValid,
		[]byte(evt.Payload),
	).Scan(&id, &handled)
	if err != nil {
		return 0, false, err
	}

	return id, handled, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_webhooks
		SET processed_at = NOW(), process_error = NULL
		WHERE id = $1
	`, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_webhooks
		SET process_error = $2
		WHERE id = $1
	`, webhookID, reason)
	return err
}
