package assembler

import "strings"

// nodeClass is the classification of one object node ahead of traversal.
// A node may be a section header and a content producer at the same time,
// so the variants are independent facets rather than exclusive kinds. A node
// with no facet set is unknown and only contributes its children.
type nodeClass struct {
	Section string   // non-empty: pushes one section level for the subtree
	Text    string   // non-empty: yields one text span
	Table   []string // pipe-delimited rows; empty when the node is not tabular
	Figure  string   // caption; empty when the node is not a figure/image
	Page    int      // 0 when the node carries no usable page number
}

var (
	sectionKeys = []string{"title", "heading", "name"}
	pageKeys    = []string{"page", "page_no", "page_index", "pageNumber"}
	captionKeys = []string{"caption", "alt", "title"}
)

// classify probes a node's members once, tolerating absent and renamed
// fields. Parsing services disagree on shape, so every check is duck-typed.
func classify(members []member) nodeClass {
	get := func(key string) (value, bool) {
		for _, m := range members {
			if m.key == key {
				return m.val, true
			}
		}
		return value{}, false
	}

	var nc nodeClass

	for _, k := range sectionKeys {
		if v, ok := get(k); ok && v.kind == kindString && strings.TrimSpace(v.str) != "" {
			nc.Section = strings.TrimSpace(v.str)
			break
		}
	}

	if v, ok := get("text"); ok && v.kind == kindString && strings.TrimSpace(v.str) != "" {
		nc.Text = strings.TrimSpace(v.str)
	}

	for _, k := range pageKeys {
		if v, ok := get(k); ok {
			if p, isInt := v.intValue(); isInt {
				nc.Page = p
				break
			}
		}
	}

	var typ string
	if v, ok := get("type"); ok && v.kind == kindString {
		typ = v.str
	}

	if typ == "table" {
		if cells, ok := get("cells"); ok && cells.kind == kindArray {
			nc.Table = renderGrid(cells)
		}
	}

	if typ == "figure" || typ == "image" {
		for _, k := range captionKeys {
			if v, ok := get(k); ok && v.kind == kindString && strings.TrimSpace(v.str) != "" {
				nc.Figure = strings.TrimSpace(v.str)
				break
			}
		}
	}

	return nc
}

// renderGrid renders a 2-D cell grid as pipe-delimited rows. Rows that are
// not arrays are skipped; null cells render empty.
func renderGrid(rows value) []string {
	var lines []string
	for _, r := range rows.elems {
		if r.kind != kindArray {
			continue
		}
		cells := make([]string, 0, len(r.elems))
		for _, c := range r.elems {
			cells = append(cells, strings.TrimSpace(c.stringify()))
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	return lines
}
