package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"

	"github.com/shrtnr/shrtnr/internal/repo"
)

// SlackHandler glues the /shortenlink slash command to link creation.
type SlackHandler struct {
	links         *repo.LinksRepo
	signingSecret string
}

func NewSlackHandler(links *repo.LinksRepo, signingSecret string) *SlackHandler {
	return &SlackHandler{links: links, signingSecret: signingSecret}
}

// Command handles POST /_slack/command. Command text is
// "code target [default_parameter]"; the requesting Slack username
// becomes created_by. Failures are reported back as ephemeral text.
func (h *SlackHandler) Command(c echo.Context) error {
	r := c.Request()

	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		return echo.ErrUnauthorized
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if _, err := verifier.Write(body); err != nil {
		return echo.ErrUnauthorized
	}
	if err := verifier.Ensure(); err != nil {
		log.Warn().Err(err).Msg("slack signature verification failed")
		return echo.ErrUnauthorized
	}

	// SlashCommandParse consumes the form body; restore it after the
	// verifier read everything.
	r.Body = io.NopCloser(bytes.NewReader(body))

	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slash command")
	}

	return respond(c, h.runCommand(c, cmd))
}

func (h *SlackHandler) runCommand(c echo.Context, cmd slack.SlashCommand) string {
	fields := strings.Fields(cmd.Text)
	if len(fields) < 2 {
		return "Usage: code target [default_parameter]"
	}

	code := strings.ToLower(fields[0])
	target := fields[1]
	var defaultParameter *string
	if len(fields) > 2 {
		defaultParameter = &fields[2]
	}

	created, err := h.links.Create(c.Request().Context(), code, target, cmd.UserName, defaultParameter)
	if err != nil {
		log.Info().Err(err).Str("code", code).Str("user", cmd.UserName).Msg("slack create failed")
		return fmt.Sprintf("Error: %v", err)
	}

	log.Info().Str("code", created.Code).Str("user", cmd.UserName).Msg("link created via slack")
	return fmt.Sprintf("Successfully created redirect with code '%s'", created.Code)
}

func respond(c echo.Context, text string) error {
	return c.JSON(http.StatusOK, map[string]string{
		"response_type": "ephemeral",
		"text":          text,
	})
}
