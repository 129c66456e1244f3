// Package pagination groups wrapped lines into pages.
package pagination

import "math"

// PageGroup is the ordered run of lines placed on one output page
type PageGroup struct {
	Index int
	Lines []string
}

// Paginate partitions lines into contiguous groups of at most linesPerPage.
// Empty input still produces one group holding a single empty line.
// A linesPerPage below one is treated as one.
func Paginate(lines []string, linesPerPage int) []PageGroup {
	if linesPerPage < 1 {
		linesPerPage = 1
	}
	if len(lines) == 0 {
		return []PageGroup{{Index: 0, Lines: []string{""}}}
	}

	groups := make([]PageGroup, 0, (len(lines)+linesPerPage-1)/linesPerPage)
	for start := 0; start < len(lines); start += linesPerPage {
		end := min(start+linesPerPage, len(lines))
		chunk := make([]string, end-start)
		copy(chunk, lines[start:end])
		groups = append(groups, PageGroup{Index: len(groups), Lines: chunk})
	}
	return groups
}

// LinesPerPage derives page capacity from the available vertical space,
// rounding down so the last line never crosses the printable area.
func LinesPerPage(availableHeight, linePitch float64) int {
	if linePitch <= 0 || availableHeight <= 0 {
		return 1
	}
	n := int(math.Floor(availableHeight/linePitch + 1e-9))
	return max(n, 1)
}

// Flatten concatenates the lines of every group in order
func Flatten(groups []PageGroup) []string {
	var lines []string
	for _, g := range groups {
		lines = append(lines, g.Lines...)
	}
	return lines
}
