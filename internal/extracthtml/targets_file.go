package extracthtml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrNoTargets is returned for a targets file that defines nothing.
	ErrNoTargets = errors.New("targets file defines no targets")
	// ErrUnknownStepKind is returned when a chain names an unsupported step.
	ErrUnknownStepKind = errors.New("unknown step kind")
	// ErrInvalidTarget wraps every other structural problem of a target.
	ErrInvalidTarget = errors.New("invalid target")
)

// LoadTargetFile reads target definitions from a JSON file and validates them.
func LoadTargetFile(path string) (*TargetFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	var tf TargetFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return nil, fmt.Errorf("parse targets json: %w", err)
	}
	if len(tf.Targets) == 0 {
		return nil, ErrNoTargets
	}
	for _, t := range tf.Targets {
		if err := ValidateTarget(t); err != nil {
			return nil, err
		}
	}
	return &tf, nil
}

// ValidateTarget checks that t can be run: it has a name, a URL, at least one
// field, and every chain uses known step kinds with the parameters they need.
func ValidateTarget(t Target) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidTarget)
	}
	if strings.TrimSpace(t.URL) == "" {
		return fmt.Errorf("%w: %s: missing url", ErrInvalidTarget, t.Name)
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("%w: %s: no fields", ErrInvalidTarget, t.Name)
	}
	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if seen[f.OutputFile()] {
			return fmt.Errorf("%w: %s: duplicate output file %q", ErrInvalidTarget, t.Name, f.OutputFile())
		}
		seen[f.OutputFile()] = true
		if err := validateField(f, true); err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name, f.Name, err)
		}
	}
	return nil
}

func validateField(f Field, allowGroups bool) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: field without name", ErrInvalidTarget)
	}
	if err := validateChain(f.Chain); err != nil {
		return err
	}
	if f.Resolve && f.Shape != "" && f.Shape != ShapeScalar {
		return fmt.Errorf("%w: resolve applies to scalar fields only", ErrInvalidTarget)
	}

	switch f.Shape {
	case "", ShapeScalar:
	case ShapeList:
		if f.Items == nil || f.Items.Tag == "" {
			return fmt.Errorf("%w: list field needs items.tag", ErrInvalidTarget)
		}
		return validateChain(f.Items.Chain)
	case ShapeMapping, ShapeTable, ShapeTuples:
		ts := f.Table
		if ts == nil || ts.RowTag == "" || len(ts.Columns) == 0 {
			return fmt.Errorf("%w: %s field needs table.row_tag and columns", ErrInvalidTarget, f.Shape)
		}
		if f.Shape == ShapeMapping {
			n := len(ts.Columns)
			if ts.KeyColumn < 0 || ts.KeyColumn >= n || ts.ValueColumn < 0 || ts.ValueColumn >= n {
				return fmt.Errorf("%w: mapping key/value column out of range", ErrInvalidTarget)
			}
		}
		if len(ts.Only) > 0 && (ts.KeyColumn < 0 || ts.KeyColumn >= len(ts.Columns)) {
			return fmt.Errorf("%w: only needs a key column in range", ErrInvalidTarget)
		}
		for _, c := range ts.Columns {
			if err := validateChain(c.Chain); err != nil {
				return err
			}
		}
	case ShapeGroups:
		if !allowGroups {
			return fmt.Errorf("%w: groups cannot nest", ErrInvalidTarget)
		}
		gs := f.Groups
		if gs == nil || gs.Item.Tag == "" || len(gs.Fields) == 0 {
			return fmt.Errorf("%w: groups field needs item.tag and fields", ErrInvalidTarget)
		}
		if err := validateChain(gs.Key); err != nil {
			return err
		}
		for _, sub := range gs.Fields {
			if err := validateField(sub, false); err != nil {
				return fmt.Errorf("%s: %w", sub.Name, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown shape %q", ErrInvalidTarget, f.Shape)
	}
	return nil
}

func validateChain(chain Chain) error {
	for i, st := range chain {
		switch st.Kind {
		case StepFind:
		case StepFindAt:
			if st.Index < 0 {
				return fmt.Errorf("%w: step %d: negative index", ErrInvalidTarget, i)
			}
			if st.Count < 0 || (st.Count > 0 && st.Index >= st.Count) {
				return fmt.Errorf("%w: step %d: index outside count", ErrInvalidTarget, i)
			}
		case StepText, StepAttr:
			if i != len(chain)-1 {
				return fmt.Errorf("%w: step %d: %s must be the last step", ErrInvalidTarget, i, st.Kind)
			}
			if st.Kind == StepAttr && st.Attr == "" {
				return fmt.Errorf("%w: step %d: attr step needs attr", ErrInvalidTarget, i)
			}
		default:
			return fmt.Errorf("%w: step %d: %q", ErrUnknownStepKind, i, st.Kind)
		}
	}
	return nil
}
