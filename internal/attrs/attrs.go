// Package attrs parses the raw (key, value) attribute lists a
// RawTypeDescriptor or RawSymbolDescriptor carries into a Mutation the type
// node model can apply during Clone/Extend.
//
// Matching is case-insensitive and whitespace-trimmed on the key. Unknown
// keys are ignored silently.
package attrs

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// cases.Fold takes no language tag; this blank reference only keeps the
// language import in use.
var _ = language.Und

var fold = cases.Fold()

// foldKey normalizes an attribute key for matching: Unicode case-folds (so
// non-ASCII TwinCAT identifier characters compare correctly, not just
// strings.EqualFold's ASCII-biased behaviour) and trims surrounding
// whitespace.
func foldKey(key string) string {
	return fold.String(strings.TrimSpace(key))
}

// Mutation is the parsed, merged effect of a type's or symbol's attribute
// list. A nil pointer field means "not specified"; appliers only overwrite
// what is present.
type Mutation struct {
	ReadOnly    *bool
	Ignored     *bool
	OnSet       *string
	OnGet       *string
	OnClear     *string
	OnChange    *string
	Default     *string
	LowerBorder *string
	UpperBorder *string
}

// Parse folds a raw attribute list into a Mutation. Later entries for the
// same key win (the controller's own list order is preserved as-is; we do
// not special-case duplicates beyond "last wins", matching how a flat
// key/value list is normally merged).
func Parse(raw []RawAttribute) Mutation {
	var m Mutation
	for _, a := range raw {
		key := foldKey(a.Key)
		val := a.Value
		switch key {
		case "readonly":
			b := true
			m.ReadOnly = &b
		case "ignored":
			b := true
			m.Ignored = &b
		case "onset":
			v := val
			m.OnSet = &v
		case "onget":
			v := val
			m.OnGet = &v
		case "onclear":
			v := val
			m.OnClear = &v
		case "onchange":
			v := val
			m.OnChange = &v
		case "default":
			v := val
			m.Default = &v
		case "lowerborder":
			v := val
			m.LowerBorder = &v
		case "upperborder":
			v := val
			m.UpperBorder = &v
		}
	}
	return m
}

// RawAttribute mirrors model.RawAttribute without importing pkg/model, to
// avoid a dependency cycle (model.Clone calls into this package). Callers in
// pkg/model convert with AttributesOf.
type RawAttribute struct {
	Key   string
	Value string
}

// IsEmpty reports whether m specifies no overrides at all.
func (m Mutation) IsEmpty() bool {
	return m.ReadOnly == nil && m.Ignored == nil && m.OnSet == nil &&
		m.OnGet == nil && m.OnClear == nil && m.OnChange == nil &&
		m.Default == nil && m.LowerBorder == nil && m.UpperBorder == nil
}

// Fold case-folds and trims a string with the same normalization used for
// attribute-key matching. Enum-membership checks elsewhere compare names
// exactly and do not use it.
func Fold(s string) string { return foldKey(s) }
