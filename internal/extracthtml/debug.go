package extracthtml

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DebugChain walks chain against doc one step at a time and prints, for each
// step, whether it matched and the outer HTML (or text) of the reached node.
// Used by the command's "-chain" debug mode when a page layout changes.
//
// It returns the number of navigation steps that matched.
func DebugChain(w io.Writer, doc *Document, chain Chain, textOnly bool) int {
	if doc.Absent() {
		fmt.Fprintln(w, "document: absent")
		return 0
	}

	cur := doc.Root()
	matched := 0
	for i, st := range chain {
		if st.Kind == StepText || st.Kind == StepAttr {
			v, ok := readNode(cur, st)
			fmt.Fprintf(w, "step %d %s: ok=%t value=%q\n\n", i, describeStep(st), ok, v)
			return matched
		}

		next, ok := Navigate(cur, Chain{st})
		if !ok {
			fmt.Fprintf(w, "step %d %s: no match\n\n", i, describeStep(st))
			return matched
		}
		matched++
		cur = next
		fmt.Fprintf(w, "step %d %s: matched\n", i, describeStep(st))
		printNode(w, cur, textOnly)
	}
	return matched
}

func printNode(w io.Writer, s *goquery.Selection, textOnly bool) {
	if textOnly {
		fmt.Fprintln(w, NormalizeWhitespace(s.Text()))
		fmt.Fprintln(w)
		return
	}
	out, err := goquery.OuterHtml(s)
	if err != nil {
		in, _ := s.Html()
		fmt.Fprintln(w, in)
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w, out)
	fmt.Fprintln(w)
}

func describeStep(st Step) string {
	var b strings.Builder
	b.WriteString(string(st.Kind))
	switch st.Kind {
	case StepFind, StepFindAt:
		tag := st.Tag
		if tag == "" {
			tag = "*"
		}
		fmt.Fprintf(&b, "(%s", tag)
		if st.Class != "" {
			fmt.Fprintf(&b, " class=%q", st.Class)
		}
		if st.MatchAttr != "" {
			fmt.Fprintf(&b, " %s=%q", st.MatchAttr, st.MatchValue)
		}
		if st.Kind == StepFindAt {
			fmt.Fprintf(&b, " index=%d", st.Index)
			if st.Count > 0 {
				fmt.Fprintf(&b, " count=%d", st.Count)
			}
		}
		b.WriteString(")")
	case StepAttr:
		fmt.Fprintf(&b, "(%s)", st.Attr)
	}
	return b.String()
}
