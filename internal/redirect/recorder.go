package redirect

import (
	"context"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"
	"github.com/rs/zerolog/log"

	"github.com/shrtnr/shrtnr/internal/repo"
)

// ClickMeta carries the request context a click is attributed from.
type ClickMeta struct {
	UserAgent string
	Referer   string
	// ForwardedFor is the proxy hop chain, oldest entry first, with the
	// socket peer appended as the final hop when no chain was supplied.
	ForwardedFor []string
	// Clicker is the raw visitor cookie value, possibly empty or garbage.
	Clicker string
	UTMTags map[string]string
}

// Recorder decides whether a request counts as a click and persists it.
type Recorder struct {
	clicks      *repo.ClicksRepo
	trustedHops int
}

func NewRecorder(clicks *repo.ClicksRepo, trustedHops int) *Recorder {
	return &Recorder{clicks: clicks, trustedHops: trustedHops}
}

// Record attributes a click on code. Bot traffic records nothing and
// returns an empty clicker. Otherwise the visitor identifier is parsed
// from meta.Clicker or minted fresh, the click row and counter bump are
// written, and the identifier is returned for the caller to re-issue as
// a cookie.
func (r *Recorder) Record(ctx context.Context, code string, meta ClickMeta) (string, error) {
	ua := useragent.Parse(meta.UserAgent)
	if ua.Bot {
		log.Debug().Str("code", code).Str("user_agent", meta.UserAgent).Msg("bot click ignored")
		return "", nil
	}

	clicker := meta.Clicker
	if _, err := uuid.Parse(clicker); err != nil {
		clicker = uuid.NewString()
	}

	click := &repo.Click{
		ID:        uuid.NewString(),
		LinkID:    code,
		ClickedAt: repo.Now(),
		ClientIP:  clientIP(meta.ForwardedFor, r.trustedHops),
		Referer:   meta.Referer,
		UserAgent: meta.UserAgent,
	}
	click.Source = utmField(meta.UTMTags, "source")
	click.Medium = utmField(meta.UTMTags, "medium")
	click.Campaign = utmField(meta.UTMTags, "campaign")
	click.Term = utmField(meta.UTMTags, "term")
	click.Content = utmField(meta.UTMTags, "content")

	if err := r.clicks.Record(ctx, click); err != nil {
		return "", err
	}

	return clicker, nil
}

// clientIP selects the real client address from a forwarded-for chain:
// skip trustedHops entries from the end and take the next one. A chain
// too short for the configured hop count, or an entry that is not an
// IP, yields nil and the click stores NULL.
func clientIP(hops []string, trustedHops int) *string {
	idx := len(hops) - 1 - trustedHops
	if idx < 0 {
		return nil
	}

	addr := strings.TrimSpace(hops[idx])
	if net.ParseIP(addr) == nil {
		return nil
	}
	return &addr
}

func utmField(tags map[string]string, key string) *string {
	if value, ok := tags[key]; ok {
		return &value
	}
	return nil
}
