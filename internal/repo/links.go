package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/shrtnr/shrtnr/internal"
	"github.com/shrtnr/shrtnr/internal/link"
)

type Link struct {
	Code             string  `json:"code"`
	RedirectTo       string  `json:"redirect_to"`
	DefaultParameter *string `json:"default_parameter,omitempty"`
	Clicks           int64   `json:"clicks"`
	CreatedBy        string  `json:"created_by"`
	CreatedAt        Date    `json:"created_at"`
	UpdatedAt        *Date   `json:"updated_at,omitempty"`
}

type linkRow struct {
	Code             string  `db:"code"`
	RedirectTo       string  `db:"redirect_to"`
	DefaultParameter *string `db:"default_parameter"`
	Clicks           int64   `db:"clicks"`
	CreatedBy        string  `db:"created_by"`
	CreatedAt        Date    `db:"created_at"`
	UpdatedAt        *Date   `db:"updated_at"`
}

var linkColumns = []any{
	"code", "redirect_to", "default_parameter", "clicks",
	"created_by", "created_at", "updated_at",
}

type LinksRepo struct {
	db *sql.DB
}

func NewLinksRepo(db *sql.DB) *LinksRepo {
	return &LinksRepo{db: db}
}

// Create stores a new link after validating its code and redirect
// template. The code column is the primary key, so a duplicate —
// active or soft-deleted — surfaces as ErrCodeExists.
func (r *LinksRepo) Create(ctx context.Context, code, redirectTo, createdBy string, defaultParameter *string) (*Link, error) {
	if err := link.ValidateCode(code); err != nil {
		return nil, err
	}
	if err := link.ValidateURL(redirectTo); err != nil {
		return nil, err
	}

	executor := goqu.New("sqlite", r.db)

	log.Debug().Str("code", code).Str("redirect_to", redirectTo).Msg("creating link")

	now := Now()
	query := executor.Insert("links").
		Cols("code", "redirect_to", "default_parameter", "created_by", "created_at").
		Vals([]any{code, redirectTo, defaultParameter, createdBy, now}).
		Returning(linkColumns...)

	var row linkRow
	found, err := query.Executor().ScanStructContext(ctx, &row)
	if err != nil {
		if isUniqueViolation(err) {
			log.Info().Str("code", code).Msg("code already in use")
			return nil, internal.ErrCodeExists
		}
		log.Error().Err(err).Str("code", code).Msg("failed to create link")
		return nil, err
	}
	if !found {
		log.Warn().Str("code", code).Msg("link creation returned no rows")
		return nil, errors.New("failed to create link")
	}

	created := row.toDomain()
	log.Info().Str("code", created.Code).Str("redirect_to", created.RedirectTo).Msg("link created")

	return created, nil
}

// GetByCode returns the active link for code. Soft-deleted rows are
// invisible here.
func (r *LinksRepo) GetByCode(ctx context.Context, code string) (*Link, error) {
	executor := goqu.New("sqlite", r.db)

	log.Debug().Str("code", code).Msg("fetching link by code")

	query := executor.From("links").
		Where(goqu.Ex{"code": code, "deleted_at": nil}).
		Select(linkColumns...)

	var row linkRow
	found, err := query.Executor().ScanStructContext(ctx, &row)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to fetch link")
		return nil, err
	}
	if !found {
		log.Debug().Str("code", code).Msg("link not found")
		return nil, internal.ErrLinkNotFound
	}

	return row.toDomain(), nil
}

// Update rewrites the redirect template (re-validated) and, when
// defaultParameter is non-nil, the default parameter of an active link.
func (r *LinksRepo) Update(ctx context.Context, code, redirectTo string, defaultParameter *string) error {
	if err := link.ValidateURL(redirectTo); err != nil {
		return err
	}

	executor := goqu.New("sqlite", r.db)

	record := goqu.Record{
		"redirect_to": redirectTo,
		"updated_at":  Now(),
	}
	if defaultParameter != nil {
		record["default_parameter"] = *defaultParameter
	}

	query := executor.Update("links").
		Set(record).
		Where(goqu.Ex{"code": code, "deleted_at": nil})

	result, err := query.Executor().ExecContext(ctx)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to update link")
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return internal.ErrLinkNotFound
	}

	log.Info().Str("code", code).Str("redirect_to", redirectTo).Msg("link updated")
	return nil
}

// SoftDelete marks an active link deleted. The deleted_at predicate
// makes the statement atomic: of two racing deletes only one row
// matches, the loser sees not-found. Repeating a delete behaves the
// same way.
func (r *LinksRepo) SoftDelete(ctx context.Context, code string) error {
	executor := goqu.New("sqlite", r.db)

	now := Now()
	query := executor.Update("links").
		Set(goqu.Record{"deleted_at": now, "updated_at": now}).
		Where(goqu.Ex{"code": code, "deleted_at": nil})

	result, err := query.Executor().ExecContext(ctx)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to delete link")
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return internal.ErrLinkNotFound
	}

	log.Info().Str("code", code).Msg("link deleted")
	return nil
}

// ListActive returns all non-deleted links, newest first.
func (r *LinksRepo) ListActive(ctx context.Context) ([]*Link, error) {
	executor := goqu.New("sqlite", r.db)

	query := executor.From("links").
		Where(goqu.Ex{"deleted_at": nil}).
		Select(linkColumns...).
		Order(goqu.C("created_at").Desc())

	var rows []linkRow
	if err := query.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, err
	}

	links := make([]*Link, len(rows))
	for i, row := range rows {
		links[i] = row.toDomain()
	}
	return links, nil
}

func (r *linkRow) toDomain() *Link {
	return &Link{
		Code:             r.Code,
		RedirectTo:       r.RedirectTo,
		DefaultParameter: r.DefaultParameter,
		Clicks:           r.Clicks,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports primary key and unique violations as
	// "constraint failed: UNIQUE constraint failed: links.code (1555)"
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
