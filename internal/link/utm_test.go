package link

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeUTMTags(t *testing.T) {
	merged, err := MergeUTMTags("https://x.example/path?a=1&utm_source=old", map[string]string{
		"source":  "new",
		"invalid": "drop",
	})
	require.NoError(t, err)

	u, err := url.Parse(merged)
	require.NoError(t, err)

	query := u.Query()
	assert.Equal(t, "1", query.Get("a"))
	assert.Equal(t, "new", query.Get("utm_source"))
	assert.False(t, query.Has("utm_invalid"))
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "x.example", u.Host)
	assert.Equal(t, "/path", u.Path)
}

func TestMergeUTMTagsPreservesUntouchedParams(t *testing.T) {
	merged, err := MergeUTMTags("https://x.example/?a=1&b=2", map[string]string{"campaign": "launch"})
	require.NoError(t, err)

	query, err := url.Parse(merged)
	require.NoError(t, err)
	assert.Equal(t, "1", query.Query().Get("a"))
	assert.Equal(t, "2", query.Query().Get("b"))
	assert.Equal(t, "launch", query.Query().Get("utm_campaign"))
}

func TestMergeUTMTagsEmpty(t *testing.T) {
	merged, err := MergeUTMTags("https://x.example/path", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://x.example/path", merged)
}

func TestUTMTagsFromQuery(t *testing.T) {
	query := url.Values{}
	query.Set("utm_source", "newsletter")
	query.Set("utm_medium", "email")
	query.Set("qr", "png")
	query.Set("other", "x")

	tags := UTMTagsFromQuery(query)
	assert.Equal(t, map[string]string{
		"source": "newsletter",
		"medium": "email",
	}, tags)
}
