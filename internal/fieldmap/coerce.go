package fieldmap

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/faucetdb/touchline/internal/query"
)

// dateLayouts are tried in order. None depend on the process locale.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04:05",
	"2006/01/02",
	"2006/1/2",
}

// ParseDate parses s using the accepted date layouts. Values without a zone
// are interpreted as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Coerce converts a query-string literal for spec. The empty string is
// treated as a literal, not as null.
func Coerce(spec FieldSpec, literal string) (any, error) {
	return coerce(spec, literal)
}

func coerce(spec FieldSpec, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch spec.Kind {
	case KindInteger:
		return coerceInteger(spec, raw)
	case KindDecimal:
		return coerceDecimal(spec, raw)
	case KindDate:
		return coerceDate(spec, raw)
	default:
		return coerceString(spec, raw)
	}
}

func coerceInteger(spec FieldSpec, raw any) (any, error) {
	var text string
	switch v := raw.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	case float64:
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return nil, invalid(spec, raw, "expected a 32-bit integer")
		}
		return int64(v), nil
	case int:
		text = strconv.Itoa(v)
	case int64:
		text = strconv.FormatInt(v, 10)
	default:
		return nil, invalid(spec, raw, "expected a 32-bit integer")
	}
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return nil, invalid(spec, raw, "expected a 32-bit integer")
	}
	return n, nil
}

func coerceDecimal(spec FieldSpec, raw any) (any, error) {
	switch v := raw.(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil, invalid(spec, raw, "expected a decimal number")
		}
		return d, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, invalid(spec, raw, "expected a decimal number")
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return nil, invalid(spec, raw, "expected a decimal number")
	}
}

func coerceDate(spec FieldSpec, raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		t, err := ParseDate(v)
		if err != nil {
			return nil, invalid(spec, raw, "not a valid date")
		}
		return t, nil
	case time.Time:
		return v, nil
	default:
		return nil, invalid(spec, raw, "not a valid date")
	}
}

func coerceString(spec FieldSpec, raw any) (any, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		return nil, invalid(spec, raw, "expected a string")
	}
	clean, err := query.SanitizeStringValue(s, 0)
	if err != nil {
		return nil, invalid(spec, "", err.Error())
	}
	return clean, nil
}
