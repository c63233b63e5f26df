package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordInsertsRowAndBumpsCounter(t *testing.T) {
	database := testDB(t)
	links := NewLinksRepo(database)
	clicks := NewClicksRepo(database)
	ctx := context.Background()

	_, err := links.Create(ctx, "test", "https://example.com/", "joeschmoe", nil)
	require.NoError(t, err)

	ip := "203.0.113.7"
	source := "newsletter"
	click := &Click{
		ID:        uuid.NewString(),
		LinkID:    "test",
		ClickedAt: Now(),
		ClientIP:  &ip,
		Referer:   "https://referrer.example/",
		UserAgent: "Mozilla/5.0",
		Source:    &source,
	}
	require.NoError(t, clicks.Record(ctx, click))
	require.NoError(t, clicks.Record(ctx, &Click{
		ID:        uuid.NewString(),
		LinkID:    "test",
		ClickedAt: Now(),
		UserAgent: "Mozilla/5.0",
	}))

	got, err := links.GetByCode(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Clicks)

	var rows int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM clicks WHERE link_id = 'test'`).Scan(&rows))
	assert.Equal(t, 2, rows)

	var storedIP, storedSource string
	require.NoError(t, database.QueryRow(
		`SELECT client_ip, source FROM clicks WHERE id = ?`, click.ID,
	).Scan(&storedIP, &storedSource))
	assert.Equal(t, "203.0.113.7", storedIP)
	assert.Equal(t, "newsletter", storedSource)
}

func TestStatsForLink(t *testing.T) {
	database := testDB(t)
	links := NewLinksRepo(database)
	clicks := NewClicksRepo(database)
	ctx := context.Background()

	_, err := links.Create(ctx, "test", "https://example.com/", "joeschmoe", nil)
	require.NoError(t, err)

	stats, err := clicks.StatsForLink(ctx, "test")
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Nil(t, stats.LastClickedAt)

	require.NoError(t, clicks.Record(ctx, &Click{
		ID:        uuid.NewString(),
		LinkID:    "test",
		ClickedAt: Now(),
		UserAgent: "Mozilla/5.0",
	}))

	stats, err = clicks.StatsForLink(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.NotNil(t, stats.LastClickedAt)
}
