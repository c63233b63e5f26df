package redirect

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/shrtnr/shrtnr/internal"
	"github.com/shrtnr/shrtnr/internal/link"
	"github.com/shrtnr/shrtnr/internal/repo"
)

// Request describes one inbound redirect.
type Request struct {
	Code string
	// Parameter is the explicit /:code/:parameter path segment, empty
	// when the short form was requested.
	Parameter string
	UTMTags   map[string]string
	Click     ClickMeta
	// RecordClick is false for QR renders, which resolve without
	// counting as a visit.
	RecordClick bool
}

// Result is the resolved redirect plus the visitor identifier the
// caller should persist. Clicker is empty when no click was attributed.
type Result struct {
	URL     string
	Clicker string
}

// Resolver orchestrates lookup, placeholder substitution, UTM merging
// and click recording.
type Resolver struct {
	links    *repo.LinksRepo
	recorder *Recorder
}

func NewResolver(links *repo.LinksRepo, recorder *Recorder) *Resolver {
	return &Resolver{links: links, recorder: recorder}
}

// Resolve produces the final redirect target for req. Missing links,
// parameters supplied for non-parameterized links, and parameterized
// links with neither parameter nor default all come back as
// ErrLinkNotFound / ErrMissingParameter, both 404 at the boundary. A
// storage failure while recording the click fails the whole resolve:
// redirect success never diverges from attribution success.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	code := strings.ToLower(req.Code)

	l, err := r.links.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var target string
	if req.Parameter != "" {
		if !link.HasPlaceholder(l.RedirectTo) {
			log.Info().Str("code", code).Str("parameter", req.Parameter).Str("result", "not_found").Msg("redirect")
			return nil, internal.ErrLinkNotFound
		}
		target = link.Substitute(l.RedirectTo, req.Parameter)
	} else {
		target, err = link.ResolvePlaceholder(l.RedirectTo, "", l.DefaultParameter)
		if err != nil {
			log.Info().Str("code", code).Str("result", "missing_parameter").Msg("redirect")
			return nil, err
		}
	}

	merged, err := link.MergeUTMTags(target, req.UTMTags)
	if err != nil {
		return nil, err
	}

	var clicker string
	if req.RecordClick {
		clicker, err = r.recorder.Record(ctx, l.Code, req.Click)
		if err != nil {
			return nil, err
		}
	}

	log.Info().Str("code", code).Str("parameter", req.Parameter).Str("result", "success").Msg("redirect")

	return &Result{URL: merged, Clicker: clicker}, nil
}
