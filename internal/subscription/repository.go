package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store is the persistence contract the service depends on.
type Store interface {
	Create(context.Context, CreateParams) (Subscription, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (Subscription, error)
	List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Subscription, int, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]Subscription, error)
	ListRenewingBetween(ctx context.Context, from, to time.Time, statuses []Status) ([]Subscription, error)
	Update(context.Context, UpdateParams) (Subscription, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

const columns = `id, user_id, service_name, plan_name, price, currency, cadence, next_bill_date,
		status, category, website_url, notes, verified, created_at, updated_at`

// Repository handles persistence for subscriptions.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner, extra ...any) (Subscription, error) {
	var (
		sub     Subscription
		cadence string
		status  string
	)
	dest := []any{
		&sub.ID,
		&sub.UserID,
		&sub.ServiceName,
		&sub.PlanName,
		&sub.Price,
		&sub.Currency,
		&cadence,
		&sub.NextBillDate,
		&status,
		&sub.Category,
		&sub.WebsiteURL,
		&sub.Notes,
		&sub.Verified,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Subscription{}, err
	}
	sub.Cadence = Cadence(cadence)
	sub.Status = Status(status)
	sub.Currency = strings.TrimSpace(sub.Currency)
	return sub, nil
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Subscription, error) {
	const query = `
		INSERT INTO subscriptions (user_id, service_name, plan_name, price, currency, cadence,
			next_bill_date, status, category, website_url, notes, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + columns

	status := params.Status
	if status == "" {
		status = StatusActive
	}

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query,
		params.UserID,
		params.ServiceName,
		params.PlanName,
		params.Price,
		params.Currency,
		string(params.Cadence),
		params.NextBillDate,
		string(status),
		params.Category,
		params.WebsiteURL,
		params.Notes,
		params.Verified,
	))
	if err != nil {
		return Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}

	return sub, nil
}

func (r *Repository) GetByID(ctx context.Context, userID, id uuid.UUID) (Subscription, error) {
	const query = `
		SELECT ` + columns + `
		FROM subscriptions
		WHERE id = $1 AND user_id = $2`

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, fmt.Errorf("select subscription: %w", err)
	}

	return sub, nil
}

func (r *Repository) List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Subscription, int, error) {
	opts = opts.normalized()

	where := []string{"user_id = $1"}
	args := []any{userID}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		where = append(where, fmt.Sprintf("(service_name ILIKE $%d OR plan_name ILIKE $%d)", len(args), len(args)))
	}

	filterArgs := len(args)
	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total
		FROM subscriptions
		WHERE %s
		ORDER BY next_bill_date ASC, created_at ASC
		LIMIT $%d OFFSET $%d`,
		columns,
		strings.Join(where, " AND "),
		len(args)-1,
		len(args),
	)

	subs, total, err := r.listPage(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}

	// The window count rides on the returned rows, so a page past the end
	// carries no total of its own.
	if len(subs) == 0 && opts.Offset > 0 {
		countQuery := "SELECT COUNT(*) FROM subscriptions WHERE " + strings.Join(where, " AND ")
		if err := r.db.QueryRowContext(ctx, countQuery, args[:filterArgs]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count subscriptions: %w", err)
		}
	}

	return subs, total, nil
}

func (r *Repository) listPage(ctx context.Context, query string, args []any) ([]Subscription, int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var (
		subs  []Subscription
		total int
	)
	for rows.Next() {
		sub, err := scanSubscription(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subs, total, nil
}

func (r *Repository) ListActive(ctx context.Context, userID uuid.UUID) ([]Subscription, error) {
	const query = `
		SELECT ` + columns + `
		FROM subscriptions
		WHERE user_id = $1 AND status = $2
		ORDER BY next_bill_date ASC, created_at ASC`

	return r.query(ctx, query, userID, string(StatusActive))
}

// ListRenewingBetween returns subscriptions of every user whose bill date lies
// in [from, to] and whose status is one of statuses.
func (r *Repository) ListRenewingBetween(ctx context.Context, from, to time.Time, statuses []Status) ([]Subscription, error) {
	const query = `
		SELECT ` + columns + `
		FROM subscriptions
		WHERE next_bill_date BETWEEN $1 AND $2 AND status = ANY($3)
		ORDER BY next_bill_date ASC, created_at ASC`

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return r.query(ctx, query, DateOf(from), DateOf(to), pq.Array(names))
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Subscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subs, nil
}

func (r *Repository) Update(ctx context.Context, params UpdateParams) (Subscription, error) {
	if params.Empty() {
		return r.GetByID(ctx, params.UserID, params.ID)
	}

	setParts := []string{}
	args := []any{}

	set := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.ServiceName != nil {
		set("service_name", *params.ServiceName)
	}
	if params.PlanName != nil {
		set("plan_name", nullIfEmpty(*params.PlanName))
	}
	if params.Price != nil {
		set("price", *params.Price)
	}
	if params.Currency != nil {
		set("currency", *params.Currency)
	}
	if params.Cadence != nil {
		set("cadence", string(*params.Cadence))
	}
	if params.NextBillDate != nil {
		set("next_bill_date", *params.NextBillDate)
	}
	if params.Status != nil {
		set("status", string(*params.Status))
	}
	if params.Category != nil {
		set("category", nullIfEmpty(*params.Category))
	}
	if params.WebsiteURL != nil {
		set("website_url", nullIfEmpty(*params.WebsiteURL))
	}
	if params.Notes != nil {
		set("notes", nullIfEmpty(*params.Notes))
	}

	args = append(args, params.ID, params.UserID)
	query := fmt.Sprintf(`
		UPDATE subscriptions
		SET %s, updated_at = now()
		WHERE id = $%d AND user_id = $%d
		RETURNING %s`,
		strings.Join(setParts, ", "),
		len(args)-1,
		len(args),
		columns,
	)

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, fmt.Errorf("update subscription: %w", err)
	}

	return sub, nil
}

func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const query = `DELETE FROM subscriptions WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
