package exact

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxTop is the upstream page-size ceiling for $top.
	MaxTop = 1000
	// DefaultTop is used when a tool caller does not bound the result set.
	DefaultTop = 100
)

// isoDateLayout is the caller-facing date format for all inputs and outputs.
const isoDateLayout = "2006-01-02"

// odataDatePattern matches the upstream wire format /Date(milliseconds)/,
// optionally with a +hhmm/-hhmm offset suffix inside the parentheses.
var odataDatePattern = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d+)?\)/$`)

// odataOperators are rejected inside filter values: a value that embeds one
// of these could change the logical structure of the filter expression.
var odataOperators = []string{" or ", " and ", " eq ", " ne ", " gt ", " lt ", " ge ", " le "}

// SanitizeString makes a caller-supplied value safe for interpolation into
// an OData filter. Single quotes are doubled (the OData escape) and values
// embedding boolean/comparison operators are rejected outright.
func SanitizeString(value string) (string, error) {
	lower := strings.ToLower(value)
	for _, op := range odataOperators {
		if strings.Contains(lower, op) {
			return "", NewInvalidParameter(fmt.Sprintf("invalid characters in filter value: %s", value))
		}
	}
	return strings.ReplaceAll(value, "'", "''"), nil
}

// ParseWireDate converts the upstream /Date(ms)/ format to an ISO
// YYYY-MM-DD string. Values that are not in wire format are passed through
// unchanged on the assumption they are already ISO. The empty string maps to
// the empty string.
func ParseWireDate(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	match := odataDatePattern.FindStringSubmatch(value)
	if match == nil {
		return value, nil
	}
	millis, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return "", NewInvalidDate(value)
	}
	return time.UnixMilli(millis).UTC().Format(isoDateLayout), nil
}

// ValidateISODate checks that value is a well-formed YYYY-MM-DD date.
func ValidateISODate(value string) error {
	if _, err := time.Parse(isoDateLayout, value); err != nil {
		return NewInvalidDate(value)
	}
	return nil
}

// WireDateLiteral converts a validated ISO date into the upstream filter
// literal, e.g. "2025-09-01" -> "datetime'2025-09-01'".
func WireDateLiteral(isoDate string) (string, error) {
	if err := ValidateISODate(isoDate); err != nil {
		return "", err
	}
	return "datetime'" + isoDate + "'", nil
}

// FilterBuilder assembles an OData $filter expression from typed predicates.
// Predicates are joined with "and" in the exact order they were added.
type FilterBuilder struct {
	parts []string
	err   error
}

// NewFilter creates an empty filter builder.
func NewFilter() *FilterBuilder {
	return &FilterBuilder{}
}

func (b *FilterBuilder) add(part string) *FilterBuilder {
	b.parts = append(b.parts, part)
	return b
}

// DateGE adds `field ge datetime'value'`.
func (b *FilterBuilder) DateGE(field, isoDate string) *FilterBuilder {
	if b.err != nil {
		return b
	}
	literal, err := WireDateLiteral(isoDate)
	if err != nil {
		b.err = err
		return b
	}
	return b.add(field + " ge " + literal)
}

// DateLE adds `field le datetime'value'`.
func (b *FilterBuilder) DateLE(field, isoDate string) *FilterBuilder {
	if b.err != nil {
		return b
	}
	literal, err := WireDateLiteral(isoDate)
	if err != nil {
		b.err = err
		return b
	}
	return b.add(field + " le " + literal)
}

// DateLT adds `field lt datetime'value'`.
func (b *FilterBuilder) DateLT(field, isoDate string) *FilterBuilder {
	if b.err != nil {
		return b
	}
	literal, err := WireDateLiteral(isoDate)
	if err != nil {
		b.err = err
		return b
	}
	return b.add(field + " lt " + literal)
}

// EqString adds `field eq 'value'` with the value sanitized.
func (b *FilterBuilder) EqString(field, value string) *FilterBuilder {
	if b.err != nil {
		return b
	}
	safe, err := SanitizeString(value)
	if err != nil {
		b.err = err
		return b
	}
	return b.add(field + " eq '" + safe + "'")
}

// EqTrimmedString adds `trim(field) eq 'value'`, for upstream fields padded
// with whitespace.
func (b *FilterBuilder) EqTrimmedString(field, value string) *FilterBuilder {
	if b.err != nil {
		return b
	}
	safe, err := SanitizeString(strings.TrimSpace(value))
	if err != nil {
		b.err = err
		return b
	}
	return b.add("trim(" + field + ") eq '" + safe + "'")
}

// EqGUID adds `field eq guid'value'` with the value sanitized.
func (b *FilterBuilder) EqGUID(field, value string) *FilterBuilder {
	if b.err != nil {
		return b
	}
	safe, err := SanitizeString(value)
	if err != nil {
		b.err = err
		return b
	}
	return b.add(field + " eq guid'" + safe + "'")
}

// EqInt adds `field eq value`.
func (b *FilterBuilder) EqInt(field string, value int) *FilterBuilder {
	if b.err != nil {
		return b
	}
	return b.add(field + " eq " + strconv.Itoa(value))
}

// EqBool adds `field eq true|false`.
func (b *FilterBuilder) EqBool(field string, value bool) *FilterBuilder {
	if b.err != nil {
		return b
	}
	return b.add(field + " eq " + strconv.FormatBool(value))
}

// NotNull adds `field ne null`.
func (b *FilterBuilder) NotNull(field string) *FilterBuilder {
	if b.err != nil {
		return b
	}
	return b.add(field + " ne null")
}

// Build returns the assembled filter string, empty when no predicates were
// added, or the first predicate error encountered.
func (b *FilterBuilder) Build() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return strings.Join(b.parts, " and "), nil
}

// QuerySpec describes a single OData GET.
type QuerySpec struct {
	Select  []string
	Filter  string
	Top     int // clamped to [1, MaxTop]; 0 means "omit $top"
	Skip    int
	OrderBy string
}

// ClampTop forces a requested page size into [1, MaxTop]. Values inside the
// range pass through unchanged.
func ClampTop(top int) int {
	if top < 1 {
		return 1
	}
	if top > MaxTop {
		return MaxTop
	}
	return top
}

// Encode renders the query as OData query parameters.
func (q QuerySpec) Encode() string {
	params := url.Values{}
	if len(q.Select) > 0 {
		params.Set("$select", strings.Join(q.Select, ","))
	}
	if q.Filter != "" {
		params.Set("$filter", q.Filter)
	}
	if q.Top > 0 {
		params.Set("$top", strconv.Itoa(ClampTop(q.Top)))
	}
	if q.Skip > 0 {
		params.Set("$skip", strconv.Itoa(q.Skip))
	}
	if q.OrderBy != "" {
		params.Set("$orderby", q.OrderBy)
	}
	return params.Encode()
}
