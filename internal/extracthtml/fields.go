package extracthtml

import (
	"net/url"
	"slices"

	"github.com/PuerkitoBio/goquery"
)

// FieldResult is the extracted value of one field.
type FieldResult struct {
	Field Field
	Value any

	// Populated is true when the page supplied the value: the scalar chain
	// matched, or a structured field found at least one entry.
	Populated bool

	// SkippedRows counts malformed rows and unnamed panels dropped while
	// reading the field.
	SkippedRows int
}

// Output returns the JSON value written for the field: {"<key>": value} when
// the field has an output key, the bare value otherwise.
func (r FieldResult) Output() any {
	key := r.Field.OutputKey()
	if key == "" {
		return r.Value
	}
	m := NewOrderedMap()
	m.Set(key, r.Value)
	return m
}

// ExtractTarget reads every field of t from doc. An Absent doc yields the
// defaults of all fields. Links are resolved against the document URL, or
// the target URL for pages loaded from disk.
func ExtractTarget(doc *Document, t Target) []FieldResult {
	base := doc.URL()
	if base == nil {
		base = parseBase(t.URL)
	}
	out := make([]FieldResult, 0, len(t.Fields))
	for _, f := range t.Fields {
		out = append(out, extractField(doc, f, base))
	}
	return out
}

// ExtractField reads one field from doc, falling back to the field's default.
func ExtractField(doc *Document, f Field) FieldResult {
	return extractField(doc, f, doc.URL())
}

func extractField(doc *Document, f Field, base *url.URL) FieldResult {
	if doc.Absent() {
		return FieldResult{Field: f, Value: DefaultValue(f)}
	}
	v, ok, skipped := extractFrom(doc.Root(), f)
	if s, isString := v.(string); ok && isString && f.Resolve && s != "" {
		v = ResolveHref(base, s)
	}
	return FieldResult{Field: f, Value: v, Populated: ok, SkippedRows: skipped}
}

// DefaultValue returns the value a field takes when the page does not supply it.
// Structured shapes default to empty, never nil, so they encode as [] or {}.
func DefaultValue(f Field) any {
	switch f.Shape {
	case ShapeList:
		return []string{}
	case ShapeMapping, ShapeGroups:
		return NewOrderedMap()
	case ShapeTable:
		return []*OrderedMap{}
	case ShapeTuples:
		return [][]string{}
	default:
		return f.Default
	}
}

func extractFrom(root *goquery.Selection, f Field) (any, bool, int) {
	switch f.Shape {
	case ShapeList:
		return extractList(root, f)
	case ShapeMapping:
		return extractMapping(root, f)
	case ShapeTable:
		return extractTable(root, f)
	case ShapeTuples:
		return extractTuples(root, f)
	case ShapeGroups:
		return extractGroups(root, f)
	default:
		return extractScalar(root, f)
	}
}

func extractScalar(root *goquery.Selection, f Field) (any, bool, int) {
	s, ok := ExtractString(root, f.Chain)
	if !ok {
		return f.Default, false, 0
	}
	if f.StripPrefix != "" {
		s = StripPrefix(s, f.StripPrefix)
	}
	return s, true, 0
}

func extractList(root *goquery.Selection, f Field) (any, bool, int) {
	def := DefaultValue(f)
	if f.Items == nil {
		return def, false, 0
	}
	container, ok := Navigate(root, f.Chain)
	if !ok {
		return def, false, 0
	}

	out := []string{}
	findMatches(container, f.Items.Tag, f.Items.Class, "", "").Each(func(_ int, item *goquery.Selection) {
		v, _ := ExtractString(item, f.Items.Chain)
		out = append(out, v)
	})
	if len(out) == 0 {
		return def, false, 0
	}
	return out, true, 0
}

// rows resolves the field's container and returns the rows below it.
func rows(root *goquery.Selection, f Field) (*goquery.Selection, bool) {
	if f.Table == nil {
		return nil, false
	}
	container, ok := Navigate(root, f.Chain)
	if !ok {
		return nil, false
	}
	return findMatches(container, f.Table.RowTag, f.Table.RowClass, "", ""), true
}

func columnExtractor(c Column, empty string) CellExtractor {
	return CellExtractor{
		Index: c.Index,
		Read: func(sel *goquery.Selection) string {
			v, ok := ExtractString(sel, c.Chain)
			if !ok || v == "" {
				return empty
			}
			return v
		},
	}
}

func columnExtractors(ts *TableSpec) []CellExtractor {
	out := make([]CellExtractor, 0, len(ts.Columns))
	for _, c := range ts.Columns {
		out = append(out, columnExtractor(c, ts.EmptyValue))
	}
	return out
}

func extractMapping(root *goquery.Selection, f Field) (any, bool, int) {
	def := DefaultValue(f)
	sel, ok := rows(root, f)
	if !ok {
		return def, false, 0
	}
	ts := f.Table
	if ts.KeyColumn < 0 || ts.KeyColumn >= len(ts.Columns) || ts.ValueColumn < 0 || ts.ValueColumn >= len(ts.Columns) {
		return def, false, 0
	}

	// Keys and values are read in separate passes and paired by position.
	keyTuples, skipped := MapRows(sel, ts.CellTag, ts.Cells, []CellExtractor{columnExtractor(ts.Columns[ts.KeyColumn], ts.EmptyValue)})
	valueTuples, _ := MapRows(sel, ts.CellTag, ts.Cells, []CellExtractor{columnExtractor(ts.Columns[ts.ValueColumn], ts.EmptyValue)})

	m := NewOrderedMap()
	for _, p := range Zip(firstColumn(keyTuples), firstColumn(valueTuples)) {
		m.Set(p.Key, p.Value)
	}
	return m, m.Len() > 0, skipped
}

func extractTable(root *goquery.Selection, f Field) (any, bool, int) {
	def := DefaultValue(f)
	sel, ok := rows(root, f)
	if !ok {
		return def, false, 0
	}

	tuples, skipped := MapRows(sel, f.Table.CellTag, f.Table.Cells, columnExtractors(f.Table))
	out := make([]*OrderedMap, 0, len(tuples))
	for _, tuple := range tuples {
		if len(f.Table.Only) > 0 && !slices.Contains(f.Table.Only, tuple[f.Table.KeyColumn]) {
			continue
		}
		row := NewOrderedMap()
		for i, c := range f.Table.Columns {
			row.Set(c.Name, tuple[i])
		}
		out = append(out, row)
	}
	return out, len(out) > 0, skipped
}

func extractTuples(root *goquery.Selection, f Field) (any, bool, int) {
	def := DefaultValue(f)
	sel, ok := rows(root, f)
	if !ok {
		return def, false, 0
	}

	tuples, skipped := MapRows(sel, f.Table.CellTag, f.Table.Cells, columnExtractors(f.Table))
	return tuples, len(tuples) > 0, skipped
}

func extractGroups(root *goquery.Selection, f Field) (any, bool, int) {
	def := DefaultValue(f)
	gs := f.Groups
	if gs == nil {
		return def, false, 0
	}
	container, ok := Navigate(root, f.Chain)
	if !ok {
		return def, false, 0
	}

	var (
		names   []string
		entries []*OrderedMap
		skipped int
	)
	findMatches(container, gs.Item.Tag, gs.Item.Class, "", "").Each(func(_ int, panel *goquery.Selection) {
		name, ok := ExtractString(panel, gs.Key)
		if !ok || name == "" {
			skipped++
			return
		}
		names = append(names, name)

		entry := NewOrderedMap()
		for _, sub := range gs.Fields {
			if sub.Shape == ShapeGroups {
				continue
			}
			v, _, n := extractFrom(panel, sub)
			skipped += n
			entry.Set(sub.Name, v)
		}
		entries = append(entries, entry)
	})

	m := NewOrderedMap()
	for _, p := range Zip(names, entries) {
		m.Set(p.Key, p.Value)
	}
	if m.Len() == 0 {
		return def, false, skipped
	}
	return m, true, skipped
}

func firstColumn(tuples [][]string) []string {
	out := make([]string, 0, len(tuples))
	for _, t := range tuples {
		if len(t) > 0 {
			out = append(out, t[0])
		}
	}
	return out
}
