package sample

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"sampleplugin/pkg/pluginapi"
)

// ErrMalformedQuery is wrapped by every QueryError.
var ErrMalformedQuery = errors.New("malformed query")

// QueryError describes a query string that could not be decoded.
type QueryError struct {
	Param string
	Value string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: %v", ErrMalformedQuery, e.Err)
	}
	return fmt.Sprintf("%s: parameter %q=%q: %v", ErrMalformedQuery, e.Param, e.Value, e.Err)
}

func (e *QueryError) Unwrap() []error { return []error{ErrMalformedQuery, e.Err} }

// ImportParams are the parameters accepted by the import route.
type ImportParams struct {
	ID uint64
}

// ParseImportQuery decodes the import route query string. An absent id
// yields pluginapi.UnsetID. Pairs are split on '&' only and unknown
// parameters are ignored without being decoded, so a bad escape elsewhere in
// the query cannot fail the import.
func ParseImportQuery(query string) (ImportParams, error) {
	params := ImportParams{ID: pluginapi.UnsetID}
	var (
		raw  string
		seen bool
	)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if decodeComponent(key) != "id" {
			continue
		}
		if seen {
			return ImportParams{}, &QueryError{Param: "id", Err: errors.New("duplicate parameter")}
		}
		raw, seen = decodeComponent(value), true
	}
	if !seen {
		return params, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return ImportParams{}, &QueryError{Param: "id", Value: raw, Err: err}
	}
	params.ID = id
	return params, nil
}

// decodeComponent applies form decoding to one key or value. '+' becomes a
// space and invalid percent escapes are kept literally.
func decodeComponent(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			n, _ := strconv.ParseUint(s[i+1:i+3], 16, 8)
			b.WriteByte(byte(n))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
