package repo

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/rs/zerolog/log"
)

type Click struct {
	ID        string
	LinkID    string
	ClickedAt Date
	ClientIP  *string
	Referer   string
	UserAgent string
	Source    *string
	Medium    *string
	Campaign  *string
	Term      *string
	Content   *string
}

type ClickStats struct {
	Total         int64
	LastClickedAt *Date
}

type clickStatsRow struct {
	Total         int64 `db:"total"`
	LastClickedAt *Date `db:"last_clicked_at"`
}

type ClicksRepo struct {
	db *sql.DB
}

func NewClicksRepo(db *sql.DB) *ClicksRepo {
	return &ClicksRepo{db: db}
}

// Record persists a click and bumps the link's aggregate counter.
// These stay two statements — the counter is a relative update
// (`clicks + 1`) so concurrent clicks never lose increments — but they
// share one transaction and commit or roll back together.
func (r *ClicksRepo) Record(ctx context.Context, click *Click) error {
	executor := goqu.New("sqlite", r.db)

	log.Debug().Str("link_id", click.LinkID).Str("clicker", click.ID).Msg("recording click")

	tx, err := executor.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	err = tx.Wrap(func() error {
		insert := tx.Insert("clicks").
			Cols("id", "link_id", "clicked_at", "client_ip", "referer", "user_agent",
				"source", "medium", "campaign", "term", "content").
			Vals([]any{
				click.ID, click.LinkID, click.ClickedAt, click.ClientIP,
				click.Referer, click.UserAgent,
				click.Source, click.Medium, click.Campaign, click.Term, click.Content,
			})
		if _, err := insert.Executor().ExecContext(ctx); err != nil {
			return err
		}

		update := tx.Update("links").
			Set(goqu.Record{"clicks": goqu.L("clicks + 1")}).
			Where(goqu.Ex{"code": click.LinkID})
		_, err := update.Executor().ExecContext(ctx)
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("link_id", click.LinkID).Msg("failed to record click")
		return err
	}

	log.Debug().Str("link_id", click.LinkID).Msg("click recorded")
	return nil
}

// StatsForLink aggregates click rows for one link.
func (r *ClicksRepo) StatsForLink(ctx context.Context, code string) (*ClickStats, error) {
	executor := goqu.New("sqlite", r.db)

	query := executor.From("clicks").
		Where(goqu.Ex{"link_id": code}).
		Select(
			goqu.COUNT("*").As("total"),
			goqu.MAX("clicked_at").As("last_clicked_at"),
		)

	var row clickStatsRow
	found, err := query.Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return &ClickStats{}, nil
	}

	return &ClickStats{Total: row.Total, LastClickedAt: row.LastClickedAt}, nil
}
