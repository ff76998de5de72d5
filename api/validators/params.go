package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
)

// IntRange bounds an optional integer query parameter.
type IntRange struct {
	Default int
	Min     int
	Max     int
}

// QueryInt reads key from the query string. A missing value yields bounds.Default.
func QueryInt(r *http.Request, key string, bounds IntRange) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return bounds.Default, nil
	}
	details := map[string]any{"field": key}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(details)
	}
	if value < bounds.Min || value > bounds.Max {
		details["min"], details["max"] = bounds.Min, bounds.Max
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(details)
	}
	return value, nil
}

// Clip trims whitespace and cuts the value to at most max runes.
func Clip(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 0 || utf8.RuneCountInString(value) <= max {
		return value
	}
	return string([]rune(value)[:max])
}
