package handler

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/shrtnr/shrtnr/internal"
	"github.com/shrtnr/shrtnr/internal/link"
	"github.com/shrtnr/shrtnr/internal/qr"
	"github.com/shrtnr/shrtnr/internal/redirect"
	"github.com/shrtnr/shrtnr/internal/repo"
)

const (
	clickerCookie = "clicker"
	cookieMaxAge  = 365 * 24 * 60 * 60
)

type LinkHandler struct {
	links    *repo.LinksRepo
	clicks   *repo.ClicksRepo
	resolver *redirect.Resolver
	// hostname is the public host encoded into QR short URLs.
	hostname string
}

func NewLinkHandler(links *repo.LinksRepo, clicks *repo.ClicksRepo, resolver *redirect.Resolver, hostname string) *LinkHandler {
	return &LinkHandler{
		links:    links,
		clicks:   clicks,
		resolver: resolver,
		hostname: hostname,
	}
}

type CreateLinkRequest struct {
	Code             string  `json:"code"`
	RedirectTo       string  `json:"redirect_to"`
	CreatedBy        string  `json:"created_by"`
	DefaultParameter *string `json:"default_parameter"`
}

type UpdateLinkRequest struct {
	RedirectTo       string  `json:"redirect_to"`
	DefaultParameter *string `json:"default_parameter"`
}

type LinkResponse struct {
	Code             string     `json:"code"`
	RedirectTo       string     `json:"redirect_to"`
	DefaultParameter *string    `json:"default_parameter,omitempty"`
	Clicks           int64      `json:"clicks"`
	CreatedBy        string     `json:"created_by"`
	CreatedAt        repo.Date  `json:"created_at"`
	LastClickedAt    *repo.Date `json:"last_clicked_at,omitempty"`
}

type ListLinksResponse struct {
	Links []LinkResponse `json:"links"`
}

func (h *LinkHandler) CreateLink(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	if req.RedirectTo == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "redirect_to is required")
	}
	if req.CreatedBy == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "created_by is required")
	}

	code := strings.ToLower(req.Code)
	if code == "" {
		code = link.GenerateCode()
	}

	created, err := h.links.Create(ctx, code, req.RedirectTo, req.CreatedBy, req.DefaultParameter)
	if err != nil {
		switch {
		case errors.Is(err, internal.ErrInvalidCode),
			errors.Is(err, internal.ErrInvalidURL),
			errors.Is(err, internal.ErrCodeExists):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		log.Error().Err(err).Str("code", code).Msg("failed to create link")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create link")
	}

	return c.String(http.StatusCreated, created.Code)
}

// Redirect serves GET /:code and GET /:code/:parameter. With a qr query
// parameter it returns the QR image of the short URL instead of
// redirecting, and no click is recorded.
func (h *LinkHandler) Redirect(c echo.Context) error {
	ctx := c.Request().Context()
	code := c.Param("code")
	parameter := c.Param("parameter")
	qrFormat := c.QueryParam("qr")

	result, err := h.resolver.Resolve(ctx, redirect.Request{
		Code:        code,
		Parameter:   parameter,
		UTMTags:     link.UTMTagsFromQuery(c.QueryParams()),
		Click:       clickMeta(c),
		RecordClick: qrFormat == "",
	})
	if err != nil {
		switch {
		case errors.Is(err, internal.ErrLinkNotFound),
			errors.Is(err, internal.ErrMissingParameter):
			return echo.NewHTTPError(http.StatusNotFound, "link not found")
		}
		log.Error().Err(err).Str("code", code).Msg("failed to resolve redirect")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve redirect")
	}

	if qrFormat != "" {
		return h.serveQR(c, strings.ToLower(code), parameter, qrFormat)
	}

	if result.Clicker != "" {
		c.SetCookie(&http.Cookie{
			Name:     clickerCookie,
			Value:    result.Clicker,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
			MaxAge:   cookieMaxAge,
		})
	}

	return c.Redirect(http.StatusFound, result.URL)
}

func (h *LinkHandler) serveQR(c echo.Context, code, parameter, rawFormat string) error {
	format, err := qr.ParseFormat(rawFormat)
	if err != nil {
		log.Warn().Str("format", rawFormat).Msg("invalid qr format")
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported qr format")
	}

	shortURL := "https://" + h.hostname + "/" + code
	filename := code
	if parameter != "" {
		shortURL += "/" + parameter
		filename += "-" + parameter
	}
	filename += "." + string(format)

	data, err := qr.Render(shortURL, format)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to render qr")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render qr")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return c.Blob(http.StatusOK, format.ContentType(), data)
}

func (h *LinkHandler) UpdateLink(c echo.Context) error {
	ctx := c.Request().Context()
	code := strings.ToLower(c.Param("code"))

	var req UpdateLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	err := h.links.Update(ctx, code, req.RedirectTo, req.DefaultParameter)
	if err != nil {
		switch {
		case errors.Is(err, internal.ErrInvalidURL):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, internal.ErrLinkNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		log.Error().Err(err).Str("code", code).Msg("failed to update link")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update link")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *LinkHandler) DeleteLink(c echo.Context) error {
	ctx := c.Request().Context()
	code := strings.ToLower(c.Param("code"))

	if err := h.links.SoftDelete(ctx, code); err != nil {
		if errors.Is(err, internal.ErrLinkNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		log.Error().Err(err).Str("code", code).Msg("failed to delete link")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete link")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *LinkHandler) ListLinks(c echo.Context) error {
	ctx := c.Request().Context()

	links, err := h.links.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list links")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list links")
	}

	responses := lo.Map(links, func(l *repo.Link, _ int) LinkResponse {
		resp := LinkResponse{
			Code:             l.Code,
			RedirectTo:       l.RedirectTo,
			DefaultParameter: l.DefaultParameter,
			Clicks:           l.Clicks,
			CreatedBy:        l.CreatedBy,
			CreatedAt:        l.CreatedAt,
		}
		if stats, err := h.clicks.StatsForLink(ctx, l.Code); err == nil {
			resp.LastClickedAt = stats.LastClickedAt
		}
		return resp
	})

	return c.JSON(http.StatusOK, ListLinksResponse{Links: responses})
}

// clickMeta collects attribution input from the request. The hop chain
// is the X-Forwarded-For entries, falling back to the socket peer as a
// single-entry chain when the header is absent.
func clickMeta(c echo.Context) redirect.ClickMeta {
	r := c.Request()

	var hops []string
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, hop := range strings.Split(xff, ",") {
			hops = append(hops, strings.TrimSpace(hop))
		}
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		hops = []string{host}
	}

	var clicker string
	if cookie, err := c.Cookie(clickerCookie); err == nil {
		clicker = cookie.Value
	}

	return redirect.ClickMeta{
		UserAgent:    r.UserAgent(),
		Referer:      r.Referer(),
		ForwardedFor: hops,
		Clicker:      clicker,
		UTMTags:      link.UTMTagsFromQuery(c.QueryParams()),
	}
}
