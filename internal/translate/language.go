package translate

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// ErrInvalidLanguage is returned for target language codes that are not BCP 47 tags
var ErrInvalidLanguage = errors.New("invalid target language")

const minTrackingCode = 100000

// NewTrackingCode returns a random numeric request code in [100000, MaxInt32)
func NewTrackingCode() string {
	return strconv.Itoa(minTrackingCode + rand.IntN(math.MaxInt32-minTrackingCode))
}

// ValidateLanguages checks every code parses as a language tag and returns
// the trimmed codes in their original spelling, since callback receivers
// match on what they sent.
func ValidateLanguages(codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: at least one target language is required", ErrInvalidLanguage)
	}

	out := make([]string, 0, len(codes))
	for _, code := range codes {
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: empty code", ErrInvalidLanguage)
		}
		if _, err := language.Parse(trimmed); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidLanguage, code, err)
		}
		out = append(out, trimmed)
	}
	return out, nil
}

// DetectSourceLanguage guesses the ISO 639-1 code of text, or "" when unknown
func DetectSourceLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return whatlanggo.DetectLang(text).Iso6391()
}
