package extracthtml

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Navigate applies the navigation steps of chain starting at root and returns
// the reached node.
//
// It stops at the first terminal step (text/attr) without reading it. The
// second return value is false as soon as any step finds nothing, in which case
// later steps are never attempted.
func Navigate(root *goquery.Selection, chain Chain) (*goquery.Selection, bool) {
	if root == nil || root.Length() == 0 {
		return nil, false
	}

	cur := root
	for _, st := range chain {
		switch st.Kind {
		case StepFind:
			next := findMatches(cur, st.Tag, st.Class, st.MatchAttr, st.MatchValue).First()
			if next.Length() == 0 {
				return nil, false
			}
			cur = next

		case StepFindAt:
			all := findMatches(cur, st.Tag, st.Class, st.MatchAttr, st.MatchValue)
			if st.Count > 0 && all.Length() != st.Count {
				return nil, false
			}
			if st.Index < 0 || st.Index >= all.Length() {
				return nil, false
			}
			cur = all.Eq(st.Index)

		case StepText, StepAttr:
			return cur, true

		default:
			return nil, false
		}
	}
	return cur, true
}

// ExtractString navigates chain from root and reads the reached node with the
// chain's terminal step. Chains without a terminal step read normalized text.
func ExtractString(root *goquery.Selection, chain Chain) (string, bool) {
	sel, ok := Navigate(root, chain)
	if !ok {
		return "", false
	}
	return readNode(sel, terminalStep(chain))
}

// Extract evaluates chain against doc and converts the reached node with read.
//
// If doc is Absent, any step misses, or read reports false, def is returned.
// This is the only way field values leave a document, so a missing node can
// never surface as a panic.
func Extract[T any](doc *Document, chain Chain, def T, read func(*goquery.Selection) (T, bool)) T {
	if doc.Absent() {
		return def
	}
	sel, ok := Navigate(doc.Root(), chain)
	if !ok {
		return def
	}
	v, ok := read(sel)
	if !ok {
		return def
	}
	return v
}

// ExtractText is Extract specialised to the chain's own terminal step.
func ExtractText(doc *Document, chain Chain, def string) string {
	term := terminalStep(chain)
	return Extract(doc, chain, def, func(sel *goquery.Selection) (string, bool) {
		return readNode(sel, term)
	})
}

// findMatches returns every descendant of sel with the given tag whose class
// attribute equals class exactly. Empty class matches any element of the tag.
func findMatches(sel *goquery.Selection, tag, class, attr, value string) *goquery.Selection {
	if tag == "" {
		tag = "*"
	}
	return sel.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		if class != "" {
			got, ok := s.Attr("class")
			if !ok || got != class {
				return false
			}
		}
		if attr != "" {
			got, ok := s.Attr(attr)
			if !ok || got != value {
				return false
			}
		}
		return true
	})
}

// terminalStep returns the chain's last step when it is a read step, or the
// implicit "normalized text" step otherwise.
func terminalStep(chain Chain) Step {
	if n := len(chain); n > 0 {
		last := chain[n-1]
		if last.Kind == StepText || last.Kind == StepAttr {
			return last
		}
	}
	return Step{Kind: StepText, Normalize: true}
}

func readNode(sel *goquery.Selection, term Step) (string, bool) {
	switch term.Kind {
	case StepAttr:
		v, ok := sel.Attr(term.Attr)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(v), true

	default:
		text := sel.Text()
		switch {
		case term.Normalize:
			text = NormalizeWhitespace(text)
		case term.Trim:
			text = strings.TrimSpace(text)
		}
		return text, true
	}
}
