package dataset

import (
	"fmt"
	"strings"

	"github.com/poiesic/pinmatch/core"
)

// Field is a canonical record field a column can map to.
type Field string

const (
	FieldOfficeName Field = "officename"
	FieldPincode    Field = "pincode"
	FieldDistrict   Field = "district"
	FieldState      Field = "state"
	FieldLatitude   Field = "latitude"
	FieldLongitude  Field = "longitude"
	FieldOfficeType Field = "officetype"
	FieldDelivery   Field = "delivery"
)

// Rule lists the header keywords that identify a field, most specific first.
type Rule struct {
	Field    Field
	Keywords []string
}

// DefaultRules cover the common postal directory exports.
var DefaultRules = []Rule{
	{FieldOfficeName, []string{"officename", "office_name", "po_name", "name"}},
	{FieldPincode, []string{"pincode", "postalcode", "pin", "postal_code"}},
	{FieldDistrict, []string{"district"}},
	{FieldState, []string{"state", "statename"}},
	{FieldLatitude, []string{"lat", "latitude"}},
	{FieldLongitude, []string{"lon", "lng", "longitude"}},
	{FieldOfficeType, []string{"officetype", "office_type", "type"}},
	{FieldDelivery, []string{"delivery"}},
}

// Columns maps fields to column positions.
type Columns map[Field]int

// Has reports whether field was detected.
func (c Columns) Has(f Field) bool {
	_, ok := c[f]
	return ok
}

// NormalizeHeader trims and lowercases a header and replaces spaces with underscores.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// DetectColumns applies rules to header in order. For each rule the keywords
// are tried in turn against every header, and the first header containing the
// keyword is taken. District and state fall back to the office name column.
func DetectColumns(header []string, rules []Rule) (Columns, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}

	cols := make(Columns)
	for _, rule := range rules {
		if i, ok := findColumn(normalized, rule.Keywords); ok {
			cols[rule.Field] = i
		}
	}

	for _, required := range []Field{FieldOfficeName, FieldPincode} {
		if !cols.Has(required) {
			return nil, fmt.Errorf("%w: no %s column in header %v", core.ErrStartup, required, normalized)
		}
	}
	for _, f := range []Field{FieldDistrict, FieldState} {
		if !cols.Has(f) {
			cols[f] = cols[FieldOfficeName]
		}
	}
	return cols, nil
}

func findColumn(headers, keywords []string) (int, bool) {
	for _, keyword := range keywords {
		for i, h := range headers {
			if strings.Contains(h, keyword) {
				return i, true
			}
		}
	}
	return 0, false
}
