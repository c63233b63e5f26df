package link

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/shrtnr/shrtnr/internal"
)

var validCodeRE = regexp.MustCompile(`^[a-z0-9_.-]+$`)

// ValidateCode checks a candidate short code. Callers lowercase codes
// before validation; uppercase input is rejected here, not normalized.
func ValidateCode(code string) error {
	if !validCodeRE.MatchString(code) {
		return internal.ErrInvalidCode
	}
	return nil
}

const codeLength = 8

// 36^8
const codeSpace = 2821109907456

// GenerateCode draws a uniform random integer in [0, 36^8) and encodes
// it as a zero-padded 8-character base36 string. Uniqueness is not
// guaranteed; the repository's create path surfaces collisions.
func GenerateCode() string {
	n := rand.Int63n(codeSpace)
	s := strconv.FormatInt(n, 36)
	if len(s) < codeLength {
		s = strings.Repeat("0", codeLength-len(s)) + s
	}
	return s
}
