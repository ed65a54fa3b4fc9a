package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/repository"
	"content-marketplace/internal/infra/metrics"
)

const backend = "postgres"

// querier is the subset of *pgxpool.Pool (and pgx.Tx) the repo needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

var _ repository.PurchaseRepository = (*PostgresPurchaseRepo)(nil)

type PostgresPurchaseRepo struct {
	db querier
}

func NewPostgresPurchaseRepo(db querier) *PostgresPurchaseRepo {
	return &PostgresPurchaseRepo{db: db}
}

func (r *PostgresPurchaseRepo) Exists(ctx context.Context, userIdentifier, contentID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM purchases WHERE user_identifier=$1 AND content_id=$2);`
	var ok bool
	err := r.db.QueryRow(ctx, q, userIdentifier, contentID).Scan(&ok)
	metrics.IncStoreOp(backend, "exists", err)
	if err != nil {
		return false, unavailable("exists", err)
	}
	return ok, nil
}

// Insert relies on UNIQUE (user_identifier, content_id): a conflicting row is
// left untouched and no row is returned.
func (r *PostgresPurchaseRepo) Insert(ctx context.Context, rec *model.PurchaseRecord) (model.InsertResult, error) {
	const q = `
INSERT INTO purchases (id, user_identifier, content_id, payment_reference_id, amount, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (user_identifier, content_id) DO NOTHING
RETURNING id, created_at;
`
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRow(ctx, q, rec.ID, rec.UserIdentifier, rec.ContentID, rec.PaymentReferenceID, rec.Amount, rec.CreatedAt).
		Scan(&rec.ID, &rec.CreatedAt)
	metrics.IncStoreOp(backend, "insert", expected(err))
	switch {
	case err == nil:
		return model.InsertResult{Status: model.Inserted, Record: rec}, nil
	case errors.Is(err, pgx.ErrNoRows), isUniqueViolation(err):
		existing, ferr := r.FindByUserAndContent(ctx, rec.UserIdentifier, rec.ContentID)
		if ferr != nil {
			existing = nil
		}
		return model.InsertResult{Status: model.AlreadyExists, Record: existing}, nil
	default:
		return model.InsertResult{}, unavailable("insert", err)
	}
}

func (r *PostgresPurchaseRepo) FindByUserAndContent(ctx context.Context, userIdentifier, contentID string) (*model.PurchaseRecord, error) {
	const q = `
SELECT id, user_identifier, content_id, payment_reference_id, amount, created_at
  FROM purchases WHERE user_identifier=$1 AND content_id=$2;
`
	var pr model.PurchaseRecord
	err := r.db.QueryRow(ctx, q, userIdentifier, contentID).
		Scan(&pr.ID, &pr.UserIdentifier, &pr.ContentID, &pr.PaymentReferenceID, &pr.Amount, &pr.CreatedAt)
	metrics.IncStoreOp(backend, "find", expected(err))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("find", err)
	}
	return &pr, nil
}

func (r *PostgresPurchaseRepo) ListByUser(ctx context.Context, userIdentifier string) ([]*model.PurchaseRecord, error) {
	const q = `
SELECT id, user_identifier, content_id, payment_reference_id, amount, created_at
  FROM purchases WHERE user_identifier=$1 ORDER BY created_at DESC;
`
	rows, err := r.db.Query(ctx, q, userIdentifier)
	metrics.IncStoreOp(backend, "list", err)
	if err != nil {
		return nil, unavailable("list", err)
	}
	defer rows.Close()

	var out []*model.PurchaseRecord
	for rows.Next() {
		var pr model.PurchaseRecord
		if err := rows.Scan(&pr.ID, &pr.UserIdentifier, &pr.ContentID, &pr.PaymentReferenceID, &pr.Amount, &pr.CreatedAt); err != nil {
			return nil, unavailable("list scan", err)
		}
		out = append(out, &pr)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list rows", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// expected drops outcomes that are answers, not failures.
func expected(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return nil
	}
	return err
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: postgres %s: %v", domain.ErrStorageUnavailable, op, err)
}
