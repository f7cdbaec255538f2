package extracthtml

import (
	"bytes"
	"encoding/json"

	"github.com/PuerkitoBio/goquery"
)

// CellExtractor reads one value out of a row.
type CellExtractor struct {
	// Index selects the cell; ignored when rows are read without a cell tag.
	Index int
	Read  func(*goquery.Selection) string
}

// MapRows iterates rows in document order and emits one tuple per row, one
// value per extractor.
//
// When cellTag is set, a row whose cell count differs from expected is skipped
// as malformed (expected == 0 disables the check, but a row lacking a requested
// index is still skipped). Rows without any cellTag cell, such as header rows,
// are passed over and not counted. When cellTag is empty, extractors read the row
// itself. The number of skipped rows is returned alongside the tuples.
func MapRows(rows *goquery.Selection, cellTag string, expected int, extractors []CellExtractor) ([][]string, int) {
	out := [][]string{}
	skipped := 0
	if rows == nil {
		return out, 0
	}

	rows.Each(func(_ int, row *goquery.Selection) {
		if cellTag == "" {
			tuple := make([]string, len(extractors))
			for i, ex := range extractors {
				tuple[i] = ex.Read(row)
			}
			out = append(out, tuple)
			return
		}

		cells := row.ChildrenFiltered(cellTag)
		if cells.Length() == 0 {
			// Header rows (th only) and spacers carry no data cells.
			return
		}
		if expected > 0 && cells.Length() != expected {
			skipped++
			return
		}

		tuple := make([]string, len(extractors))
		for i, ex := range extractors {
			if ex.Index < 0 || ex.Index >= cells.Length() {
				skipped++
				return
			}
			tuple[i] = ex.Read(cells.Eq(ex.Index))
		}
		out = append(out, tuple)
	})

	return out, skipped
}

// Pair is one positional match between two parallel lists.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// Zip pairs keys[i] with values[i]. The result has the length of the shorter
// list; surplus entries on either side are dropped.
func Zip[K, V any](keys []K, values []V) []Pair[K, V] {
	n := min(len(keys), len(values))
	out := make([]Pair[K, V], n)
	for i := 0; i < n; i++ {
		out[i] = Pair[K, V]{Key: keys[i], Value: values[i]}
	}
	return out
}

// OrderedMap is a string-keyed JSON object that keeps insertion order.
// Setting an existing key replaces its value in place.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]any)}
}

// Set stores v under k.
func (m *OrderedMap) Set(k string, v any) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Get returns the value stored under k.
func (m *OrderedMap) Get(k string) (any, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of keys.
func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// MarshalJSON writes the keys in insertion order.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalUnescaped(k)
		if err != nil {
			return nil, err
		}
		vb, err := marshalUnescaped(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalUnescaped encodes v without HTML escaping so URLs and "<"/">" in page
// text survive as written.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
