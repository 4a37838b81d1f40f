// Package nav holds the navigation core: the per-window history store and
// the session controller that arbitrates every navigation request against it.
package nav

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// Location is an absolute URL. It is validated for well-formedness and
// otherwise treated as an opaque string.
type Location string

// String returns the URL text.
func (l Location) String() string {
	return string(l)
}

// ParseLocation validates raw as an absolute URL. The returned Location is
// the trimmed input, never rewritten.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidLocation)
	}
	if i := strings.IndexFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}); i >= 0 {
		return "", fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidLocation, raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidLocation, raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return "", fmt.Errorf("%w: %q has no host", ErrInvalidLocation, raw)
		}
	}
	return Location(raw), nil
}
