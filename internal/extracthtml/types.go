package extracthtml

// StepKind names one navigation or read operation in a selector chain.
type StepKind string

const (
	// StepFind locates the first descendant matching tag and exact class.
	StepFind StepKind = "find"
	// StepFindAt locates all matching descendants and keeps the one at Index.
	StepFindAt StepKind = "find_at"
	// StepText reads the text content of the current node (terminal).
	StepText StepKind = "text"
	// StepAttr reads an attribute of the current node (terminal).
	StepAttr StepKind = "attr"
)

// Step is one operation of a selector chain.
type Step struct {
	Kind  StepKind `json:"kind"`
	Tag   string   `json:"tag,omitempty"`
	Class string   `json:"class,omitempty"` // exact, whitespace-sensitive; empty = any

	// MatchAttr/MatchValue add one more exact attribute match to find steps.
	MatchAttr  string `json:"match_attr,omitempty"`
	MatchValue string `json:"match_value,omitempty"`

	Index int `json:"index,omitempty"` // find_at only, 0-based

	// Count, when positive, makes find_at fail unless exactly Count nodes
	// match.
	Count int `json:"count,omitempty"`

	Normalize bool   `json:"normalize,omitempty"` // text: collapse whitespace + trim
	Trim      bool   `json:"trim,omitempty"`      // text: trim only
	Attr      string `json:"attr,omitempty"`      // attr: attribute name
}

// Chain is an ordered list of steps. Navigation steps come first; at most one
// terminal step (text/attr) ends the chain.
type Chain []Step

// Shape is the output shape of a field.
type Shape string

const (
	ShapeScalar  Shape = "scalar"
	ShapeList    Shape = "list"
	ShapeMapping Shape = "mapping"
	ShapeTable   Shape = "table"
	ShapeTuples  Shape = "tuples"
	ShapeGroups  Shape = "groups"
)

// ItemSpec describes repeated nodes below a container and how to read each one.
type ItemSpec struct {
	Tag   string `json:"tag"`
	Class string `json:"class,omitempty"`

	// Chain is evaluated relative to each item. Empty reads normalized text.
	Chain Chain `json:"chain,omitempty"`
}

// Column reads one value from a row.
type Column struct {
	Name string `json:"name,omitempty"`

	// Index selects the cell when TableSpec.CellTag is set. It is ignored when
	// rows are read directly (CellTag empty).
	Index int `json:"index"`

	// Chain is evaluated relative to the cell (or the row). Empty reads
	// normalized text.
	Chain Chain `json:"chain,omitempty"`
}

// TableSpec drives the row mapper for mapping, table and tuples fields.
type TableSpec struct {
	RowTag   string `json:"row_tag"`
	RowClass string `json:"row_class,omitempty"`

	// CellTag is the cell element ("td"). When empty each row is a single
	// unit and columns read relative to the row.
	CellTag string `json:"cell_tag,omitempty"`

	// Cells is the expected cell count; rows with any other count are
	// skipped as malformed. Zero disables the guard.
	Cells int `json:"cells,omitempty"`

	Columns []Column `json:"columns,omitempty"`

	// KeyColumn and ValueColumn index into Columns for mapping fields.
	KeyColumn   int `json:"key_column,omitempty"`
	ValueColumn int `json:"value_column,omitempty"`

	// EmptyValue replaces empty cell text ("None" on the flood tables).
	EmptyValue string `json:"empty_value,omitempty"`

	// Only keeps table rows whose KeyColumn value is listed. Empty keeps all.
	Only []string `json:"only,omitempty"`
}

// GroupSpec describes repeated panels that each carry a name and sub-fields.
type GroupSpec struct {
	Item   ItemSpec `json:"item"`
	Key    Chain    `json:"key"`
	Fields []Field  `json:"fields"`
}

// Field is one extracted value of a target.
type Field struct {
	Name string `json:"name"`

	// File is the output file name inside the target directory.
	// Defaults to Name + ".json".
	File string `json:"file,omitempty"`

	// Key wraps scalar and list output as {"<Key>": value}. Defaults to Name
	// for scalars; structured shapes are written bare when Key is empty.
	Key string `json:"key,omitempty"`

	Shape Shape `json:"shape"`
	Chain Chain `json:"chain"`

	// StripPrefix is removed (exact substring) before trimming scalar text.
	StripPrefix string `json:"strip_prefix,omitempty"`

	// Default is the scalar default ("" unless the page used "None").
	Default string `json:"default,omitempty"`

	// Resolve turns a relative scalar link into an absolute URL using the
	// page address.
	Resolve bool `json:"resolve,omitempty"`

	Items  *ItemSpec  `json:"items,omitempty"`
	Table  *TableSpec `json:"table,omitempty"`
	Groups *GroupSpec `json:"groups,omitempty"`
}

// OutputFile returns the file name the field is written to.
func (f Field) OutputFile() string {
	if f.File != "" {
		return f.File
	}
	return f.Name + ".json"
}

// OutputKey returns the wrapping key, or "" when the value is written bare.
func (f Field) OutputKey() string {
	if f.Key != "" {
		return f.Key
	}
	if f.Shape == ShapeScalar || f.Shape == "" {
		return f.Name
	}
	return ""
}

// Target is one named data product: a page URL and the fields read from it.
type Target struct {
	Name   string  `json:"name"`
	URL    string  `json:"url"`
	Dir    string  `json:"dir"` // subdirectory below the output root
	Fields []Field `json:"fields"`
}

// TargetFile describes a targets JSON file.
type TargetFile struct {
	Targets []Target `json:"targets"`
}
