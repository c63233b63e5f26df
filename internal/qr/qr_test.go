package qr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"png", "svg", "eps"} {
		format, err := ParseFormat(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(format))
	}

	for _, invalid := range []string{"", "jpg", "PNG", "pdf"} {
		_, err := ParseFormat(invalid)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, "format %q", invalid)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", PNG.ContentType())
	assert.Equal(t, "image/svg+xml", SVG.ContentType())
	assert.Equal(t, "application/postscript", EPS.ContentType())
}

func TestRenderPNG(t *testing.T) {
	data, err := Render("https://go.example/test", PNG)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}

func TestRenderSVG(t *testing.T) {
	data, err := Render("https://go.example/test", SVG)
	require.NoError(t, err)

	svg := string(data)
	assert.Contains(t, svg, "<svg")
	assert.Contains(t, svg, "</svg>")
	assert.Contains(t, svg, `fill="#000000"`)
}

func TestRenderEPS(t *testing.T) {
	data, err := Render("https://go.example/test", EPS)
	require.NoError(t, err)

	eps := string(data)
	assert.True(t, strings.HasPrefix(eps, "%!PS-Adobe-3.0 EPSF-3.0"))
	assert.Contains(t, eps, "%%BoundingBox:")
	assert.Contains(t, eps, "rectfill")
}
