package validators

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	pkgerrors "github.com/amaiabotanic/storefront/pkg/errors"
)

const maxHandleLen = 255

var handlePattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// IntRange bounds an integer query parameter. Fallback is used when the
// parameter is absent.
type IntRange struct {
	Fallback int
	Min      int
	Max      int
}

// QueryInt reads key from the query string and enforces bounds.
func QueryInt(r *http.Request, key string, bounds IntRange) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return bounds.Fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "must be a whole number", nil)
	}
	if n < bounds.Min || n > bounds.Max {
		return 0, queryError(key, "is out of range", map[string]any{"min": bounds.Min, "max": bounds.Max})
	}
	return n, nil
}

// QueryHandle reads an optional product handle from the query string. Empty
// means absent; anything else must be a lowercase, hyphenated slug.
func QueryHandle(r *http.Request, key string) (string, error) {
	handle := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	if handle == "" {
		return "", nil
	}
	if len(handle) > maxHandleLen || !handlePattern.MatchString(handle) {
		return "", queryError(key, "is not a valid product handle", nil)
	}
	return handle, nil
}

func queryError(key, problem string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "query parameter "+key+" "+problem).WithDetails(details)
}
