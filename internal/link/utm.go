package link

import (
	"net/url"
	"strings"

	"github.com/samber/lo"
)

const utmPrefix = "utm_"

// UTMKeys are the attribution keys carried through to click records and
// merged into redirect targets. Anything else is dropped.
var UTMKeys = []string{"source", "medium", "campaign", "term", "content"}

// UTMTagsFromQuery collects utm_* parameters from a request query,
// keyed without the prefix.
func UTMTagsFromQuery(query url.Values) map[string]string {
	tags := map[string]string{}
	for key := range query {
		if strings.HasPrefix(key, utmPrefix) {
			tags[strings.TrimPrefix(key, utmPrefix)] = query.Get(key)
		}
	}
	return tags
}

// MergeUTMTags writes recognized attribution tags into target's query
// as utm_<key> parameters. Same-name parameters already on the URL are
// overwritten; everything else survives the round trip.
func MergeUTMTags(target string, tags map[string]string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}

	query := u.Query()
	for key, value := range tags {
		if !lo.Contains(UTMKeys, key) {
			continue
		}
		query.Set(utmPrefix+key, value)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
