package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"linklock-be/internal/entities"
	"linklock-be/internal/linkerr"
)

// Postgres error code for unique constraint violations.
const pqUniqueViolation = "23505"

// LinkRepository defines the interface for link database operations.
// It is the single source of truth for resolvable keys: the unique
// constraints on short_code and custom_code are the authoritative
// uniqueness check, not any read that happened before the insert.
type LinkRepository interface {
	Create(ctx context.Context, link *entities.Link) (*entities.Link, error)
	FindByKey(ctx context.Context, key string) (*entities.Link, error)
	FindByID(ctx context.Context, id, userID string) (*entities.Link, error)
	GetByUserID(ctx context.Context, userID string) ([]*entities.Link, error)
	Delete(ctx context.Context, id, userID string) error
	UpdateProtection(ctx context.Context, id, userID string, isProtected bool, passwordHash *string) error
	KeyExists(ctx context.Context, key string) (bool, error)
}

type linkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *sql.DB) LinkRepository {
	return &linkRepository{db: db}
}

const linkColumns = `id, user_id, title, original_url, short_code, custom_code, qr_code_url, is_protected, password_hash, click_count, created_at`

func scanLink(row interface {
	Scan(dest ...interface{}) error
}) (*entities.Link, error) {
	var link entities.Link
	err := row.Scan(
		&link.ID,
		&link.UserID,
		&link.Title,
		&link.OriginalURL,
		&link.ShortCode,
		&link.CustomCode,
		&link.QRCodeURL,
		&link.IsProtected,
		&link.PasswordHash,
		&link.ClickCount,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// Create inserts a new link. A unique-constraint violation on either
// key column maps to linkerr.ErrDuplicateKey so the caller can decide
// between regenerating and surfacing the conflict.
func (r *linkRepository) Create(ctx context.Context, link *entities.Link) (*entities.Link, error) {
	query := `
		INSERT INTO links (user_id, title, original_url, short_code, custom_code, qr_code_url, is_protected, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + linkColumns

	row := r.db.QueryRowContext(ctx, query,
		link.UserID,
		link.Title,
		link.OriginalURL,
		link.ShortCode,
		link.CustomCode,
		link.QRCodeURL,
		link.IsProtected,
		link.PasswordHash,
	)

	created, err := scanLink(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, linkerr.ErrDuplicateKey
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	return created, nil
}

// FindByKey returns the unique link whose short_code or custom_code
// equals key. More than one match means the uniqueness invariant is
// broken and the request fails with ErrRegistryCorrupt instead of
// silently picking a winner.
func (r *linkRepository) FindByKey(ctx context.Context, key string) (*entities.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE short_code = $1 OR custom_code = $1
	`

	rows, err := r.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	defer rows.Close()

	var matches []*entities.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		matches = append(matches, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, linkerr.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: key %q matched %d rows", linkerr.ErrRegistryCorrupt, key, len(matches))
	}
}

// FindByID returns a link by id, but only if owned by userID.
func (r *linkRepository) FindByID(ctx context.Context, id, userID string) (*entities.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE id = $1 AND user_id = $2
	`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, r.notFoundOrForbidden(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}

	return link, nil
}

// GetByUserID retrieves all links owned by a user
func (r *linkRepository) GetByUserID(ctx context.Context, userID string) ([]*entities.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get links: %w", err)
	}
	defer rows.Close()

	var links []*entities.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

// Delete removes a link owned by userID. After the delete the link's
// keys are immediately available for reuse by new generations.
func (r *linkRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return r.notFoundOrForbidden(ctx, id)
	}

	return nil
}

// UpdateProtection sets is_protected and password_hash together in a
// single statement so the pairing is never half-applied.
func (r *linkRepository) UpdateProtection(ctx context.Context, id, userID string, isProtected bool, passwordHash *string) error {
	if isProtected && passwordHash == nil {
		return fmt.Errorf("protection enabled without a password hash")
	}
	if !isProtected {
		passwordHash = nil
	}

	query := `
		UPDATE links
		SET is_protected = $1, password_hash = $2
		WHERE id = $3 AND user_id = $4
	`

	result, err := r.db.ExecContext(ctx, query, isProtected, passwordHash, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update protection: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return r.notFoundOrForbidden(ctx, id)
	}

	return nil
}

// KeyExists reports whether any link already answers to key. Used by
// the generator as a cheap pre-check; the insert remains authoritative.
func (r *linkRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM links WHERE short_code = $1 OR custom_code = $1)`
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check key: %w", err)
	}
	return exists, nil
}

// notFoundOrForbidden distinguishes a missing link from one owned by
// somebody else.
func (r *linkRepository) notFoundOrForbidden(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM links WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check link: %w", err)
	}
	if exists {
		return linkerr.ErrForbidden
	}
	return linkerr.ErrNotFound
}
