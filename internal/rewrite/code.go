package rewrite

import (
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type byteRange struct {
	start, stop int
}

// codeRegions holds sorted, non-overlapping byte ranges of code content.
type codeRegions []byteRange

func (c codeRegions) contains(offset int) bool {
	i := sort.Search(len(c), func(i int) bool { return c[i].stop > offset })
	return i < len(c) && c[i].start <= offset
}

// findCodeRegions parses src as CommonMark and collects the source ranges of
// fenced and indented code blocks and inline code spans.
func findCodeRegions(src []byte) codeRegions {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var regions codeRegions
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				regions = append(regions, byteRange{seg.Start, seg.Stop})
			}
			return ast.WalkSkipChildren, nil
		case ast.KindCodeSpan:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					regions = append(regions, byteRange{t.Segment.Start, t.Segment.Stop})
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	sort.Slice(regions, func(i, j int) bool { return regions[i].start < regions[j].start })
	return regions
}
