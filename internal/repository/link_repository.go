package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/linkcents/linkcents/internal/models"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrCodeExists   = errors.New("short code already exists")
)

type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetByShortCode(ctx context.Context, code string) (*models.Link, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Link, error)
	ListByOwner(ctx context.Context, ownerID string, opts models.ListOptions) ([]models.Link, error)
	TopByClicks(ctx context.Context, ownerID string, limit int) ([]models.Link, error)
	Update(ctx context.Context, id uuid.UUID, upd models.LinkUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

const linkColumns = `
	id, owner_id, short_code, original_url, title, status,
	redirect_delay, password, ad_enabled, blog_pages,
	clicks, unique_visitors, earnings, last_clicked_at,
	expires_at, created_at, updated_at
`

func scanLink(row pgx.Row) (*models.Link, error) {
	link := &models.Link{}
	err := row.Scan(
		&link.ID,
		&link.OwnerID,
		&link.ShortCode,
		&link.OriginalURL,
		&link.Title,
		&link.Status,
		&link.Settings.RedirectDelay,
		&link.Settings.Password,
		&link.Settings.AdEnabled,
		&link.Settings.BlogPages,
		&link.Analytics.Clicks,
		&link.Analytics.UniqueVisitors,
		&link.Analytics.Earnings,
		&link.Analytics.LastClickedAt,
		&link.ExpiresAt,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (
			id, owner_id, short_code, original_url, title, status,
			redirect_delay, password, ad_enabled, blog_pages, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		link.ID,
		link.OwnerID,
		link.ShortCode,
		link.OriginalURL,
		link.Title,
		link.Status,
		link.Settings.RedirectDelay,
		link.Settings.Password,
		link.Settings.AdEnabled,
		link.Settings.BlogPages,
		link.ExpiresAt,
	).Scan(&link.CreatedAt, &link.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *linkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_code = $1`

	link, err := scanLink(r.db.Pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

func (r *linkRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`

	link, err := scanLink(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by id: %w", err)
	}

	return link, nil
}

// orderColumns whitelists sortable columns so ListOptions never reaches the
// query builder as raw SQL.
var orderColumns = map[string]string{
	models.OrderByClicks:        "clicks",
	models.OrderByCreatedAt:     "created_at",
	models.OrderByLastClickedAt: "last_clicked_at",
}

func (r *linkRepository) ListByOwner(ctx context.Context, ownerID string, opts models.ListOptions) ([]models.Link, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + linkColumns + ` FROM links WHERE owner_id = $1`)
	args := []any{ownerID}

	if opts.Status != "" {
		args = append(args, opts.Status)
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		fmt.Fprintf(&sb, " AND (title ILIKE $%d OR original_url ILIKE $%d OR short_code ILIKE $%d)",
			len(args), len(args), len(args))
	}

	column, ok := orderColumns[opts.OrderBy]
	if !ok {
		column = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(opts.OrderDir, "asc") {
		dir = "ASC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s NULLS LAST", column, dir)

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return r.queryLinks(ctx, sb.String(), args...)
}

func (r *linkRepository) TopByClicks(ctx context.Context, ownerID string, limit int) ([]models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links
		WHERE owner_id = $1
		ORDER BY clicks DESC
		LIMIT $2`

	return r.queryLinks(ctx, query, ownerID, limit)
}

func (r *linkRepository) queryLinks(ctx context.Context, query string, args ...any) ([]models.Link, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, *link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

// Update applies a partial merge: only non-nil fields of upd are written.
func (r *linkRepository) Update(ctx context.Context, id uuid.UUID, upd models.LinkUpdate) error {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.OriginalURL != nil {
		add("original_url", *upd.OriginalURL)
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.ExpiresAt != nil {
		add("expires_at", *upd.ExpiresAt)
	}
	if upd.Settings != nil {
		add("redirect_delay", upd.Settings.RedirectDelay)
		add("password", upd.Settings.Password)
		add("ad_enabled", upd.Settings.AdEnabled)
		add("blog_pages", upd.Settings.BlogPages)
	}

	query := fmt.Sprintf(`UPDATE links SET %s WHERE id = $1`, strings.Join(sets, ", "))

	result, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// Delete removes the link row. Historical clicks are kept on purpose: the
// click log is an independent append-only fact table.
func (r *linkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
