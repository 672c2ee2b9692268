package normalizer

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"ulama/internal/models"
)

// Transformer maps raw rows onto the Scholar shape.
type Transformer struct {
	aliases map[Field][]string
}

// NewTransformer creates a transformer using the built-in alias tables.
func NewTransformer() *Transformer {
	return &Transformer{aliases: aliases}
}

var defaultTransformer = NewTransformer()

// Normalize maps row, found at position idx of the input, with the built-in
// alias tables. It never fails.
func Normalize(row models.RawRecord, idx int) models.Scholar {
	return defaultTransformer.Transform(row, idx)
}

// Transform converts one raw row into a Scholar. Missing fields fall back to
// defaults: idx for id, NamePlaceholder for name, an empty list for works and
// null for everything else. row is embedded untouched as Raw.
func (t *Transformer) Transform(row models.RawRecord, idx int) models.Scholar {
	s, _ := t.transform(row, idx)

	return s
}

// transform also reports which fields were resolved from the row itself.
func (t *Transformer) transform(row models.RawRecord, idx int) (models.Scholar, []Field) {
	var hits []Field

	pick := func(f Field) (any, bool) {
		v, ok := Pick(row, t.aliases[f])
		if ok {
			hits = append(hits, f)
		}

		return v, ok
	}

	text := func(f Field) *string {
		v, ok := pick(f)
		if !ok {
			return nil
		}

		s := toText(v)

		return &s
	}

	s := models.Scholar{Raw: row}

	if v, ok := pick(FieldID); ok {
		s.ID = v
	} else {
		s.ID = idx
	}

	s.Name = NamePlaceholder
	if name := text(FieldName); name != nil {
		s.Name = *name
	}

	s.NameAr = text(FieldNameAr)
	s.Origin = text(FieldOrigin)
	s.BirthHijri = text(FieldBirthHijri)
	s.DeathHijri = text(FieldDeathHijri)
	s.BirthGregorian = text(FieldBirthGregorian)
	s.DeathGregorian = text(FieldDeathGregorian)

	works, _ := pick(FieldWorks)
	s.Works = toList(works)

	s.Bio = text(FieldBio)

	return s, hits
}

// Pick returns the value of the first key in keys that is present in row
// with a value other than null or the empty string. Zero, false and empty
// lists count as present.
func Pick(row models.RawRecord, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := row.Get(k)
		if !ok || v == nil {
			continue
		}

		if s, isString := v.(string); isString && s == "" {
			continue
		}

		return v, true
	}

	return nil, false
}

// toList wraps a single value into a one-element list. nil becomes an empty
// list so works is never null.
func toList(v any) []any {
	switch x := v.(type) {
	case nil:
		return []any{}
	case []any:
		return x
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}

		return out
	default:
		return []any{x}
	}
}

// toText renders a scalar as its literal text. Lists and mappings fall back
// to compact JSON.
func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	}

	b, err := models.MarshalLiteral(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(b)
}
