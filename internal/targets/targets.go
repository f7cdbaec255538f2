// Package targets holds the built-in PAGASA-DOST extraction targets.
//
// Each target is plain data: a page URL, an output directory and the selector
// chains of its fields. Nothing here touches the network; see
// extracthtml.ExtractTarget and the pipeline package for that.
package targets

import (
	"errors"
	"fmt"
	"slices"

	ex "pagasa/internal/extracthtml"
)

// ErrUnknownTarget is returned when a requested name is not registered.
var ErrUnknownTarget = errors.New("unknown target")

// BaseURL is the site every built-in target is read from.
const BaseURL = "https://www.pagasa.dost.gov.ph"

// builtins is ordered the way targets run and are listed.
var builtins = []ex.Target{
	dailyWeatherForecast,
	dailyTemperature,
	regionalForecast,
	tropicalCycloneAdvisory,
	weatherAdvisory,
	weatherOutlookForPHCities,
	weatherOutlookForPHTouristAreas,
	weeklyWeatherOutlook,
	floodInformation,
}

// All returns the built-in targets in run order.
func All() []ex.Target {
	return slices.Clone(builtins)
}

// Names returns the built-in target names in run order.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for _, t := range builtins {
		out = append(out, t.Name)
	}
	return out
}

// ByName returns the built-in target called name.
func ByName(name string) (ex.Target, error) {
	return lookup(builtins, name)
}

// Merge returns base with every target of extra applied: a target whose name
// already exists replaces it in place, new names are appended.
func Merge(base, extra []ex.Target) []ex.Target {
	out := slices.Clone(base)
	for _, t := range extra {
		i := slices.IndexFunc(out, func(b ex.Target) bool { return b.Name == t.Name })
		if i >= 0 {
			out[i] = t
			continue
		}
		out = append(out, t)
	}
	return out
}

// Select returns the targets of set named in names, in the order given. An
// empty names selects all of set.
func Select(set []ex.Target, names []string) ([]ex.Target, error) {
	if len(names) == 0 {
		return slices.Clone(set), nil
	}
	out := make([]ex.Target, 0, len(names))
	for _, n := range names {
		t, err := lookup(set, n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func lookup(set []ex.Target, name string) (ex.Target, error) {
	for _, t := range set {
		if t.Name == name {
			return t, nil
		}
	}
	return ex.Target{}, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
}

// Chain helpers. Classes are matched exactly, as the site's markup repeats
// the same class words in different combinations.

func find(tag, class string) ex.Step {
	return ex.Step{Kind: ex.StepFind, Tag: tag, Class: class}
}

func findAt(tag, class string, i int) ex.Step {
	return ex.Step{Kind: ex.StepFindAt, Tag: tag, Class: class, Index: i}
}

// findAtOf is findAt that also requires exactly n matches.
func findAtOf(tag, class string, i, n int) ex.Step {
	return ex.Step{Kind: ex.StepFindAt, Tag: tag, Class: class, Index: i, Count: n}
}

func findAttr(tag, attr, value string) ex.Step {
	return ex.Step{Kind: ex.StepFind, Tag: tag, MatchAttr: attr, MatchValue: value}
}

func normalized() ex.Step { return ex.Step{Kind: ex.StepText, Normalize: true} }

func trimmed() ex.Step { return ex.Step{Kind: ex.StepText, Trim: true} }

func raw() ex.Step { return ex.Step{Kind: ex.StepText} }

func attr(name string) ex.Step { return ex.Step{Kind: ex.StepAttr, Attr: name} }

// under returns a new chain of prefix followed by steps.
func under(prefix ex.Chain, steps ...ex.Step) ex.Chain {
	out := make(ex.Chain, 0, len(prefix)+len(steps))
	out = append(out, prefix...)
	return append(out, steps...)
}

// columns builds positional columns that read each cell's normalized text.
func columns(names ...string) []ex.Column {
	out := make([]ex.Column, 0, len(names))
	for i, n := range names {
		out = append(out, ex.Column{Name: n, Index: i})
	}
	return out
}
