package lang

import (
	"strings"
)

// Position is a zero-based line/column pair.
type Position struct {
	Line int
	Col  int
}

// Range is a half-open textual span.
type Range struct {
	Start Position
	End   Position
}

// CallSite is a call expression found inside a definition's extent.
type CallSite struct {
	Name  string
	Range Range
}

// FunctionDefinition is one definition recovered from source text, with the
// calls found inside its extent. It exists only during one extraction pass.
type FunctionDefinition struct {
	Name      string
	Kind      Kind
	StartLine int
	StartCol  int
	EndLine   int
	Calls     []CallSite
}

// maxUnbalancedExtent caps the extent of a brace definition whose braces
// never balance, bounding pathological input.
const maxUnbalancedExtent = 50

// Extract finds function/class/struct definitions in content, their textual
// extents, and the call expressions inside each extent. ext selects the
// pattern table; unknown extensions use the generic table. Lines that fail
// every pattern are simply skipped; the worst case is an empty result,
// never an error.
func Extract(content, ext string) []FunctionDefinition {
	table := TableForExt(ext)
	lines := strings.Split(content, "\n")

	var defs []FunctionDefinition
	for i, line := range lines {
		for _, dp := range table.Definitions {
			m := dp.Regex.FindStringSubmatchIndex(line)
			if m == nil {
				continue
			}
			lo, hi := m[2*dp.NameGroup], m[2*dp.NameGroup+1]
			if lo < 0 {
				continue
			}
			name := line[lo:hi]
			// Single-char and underscore-prefixed names are noise, as are
			// reserved words caught by the looser method-shaped patterns.
			if len(name) <= 1 || strings.HasPrefix(name, "_") || table.Excluded(name) {
				break
			}
			defs = append(defs, FunctionDefinition{
				Name:      name,
				Kind:      dp.Kind,
				StartLine: i,
				StartCol:  lo,
				EndLine:   extentEnd(lines, i, table.Extent),
			})
			break // first matching pattern wins for this line
		}
	}

	for d := range defs {
		defs[d].Calls = collectCalls(lines, table, &defs[d])
	}
	return defs
}

// extentEnd computes the last line (inclusive) of the definition starting
// at line start.
func extentEnd(lines []string, start int, style ExtentStyle) int {
	if style == ExtentIndent {
		return indentExtentEnd(lines, start)
	}
	return braceExtentEnd(lines, start)
}

// braceExtentEnd scans forward counting {} balance. The extent ends on the
// first line where, after at least one opening brace, the balance returns
// to zero. Unbalanced input is capped at start+maxUnbalancedExtent.
func braceExtentEnd(lines []string, start int) int {
	balance := 0
	opened := false
	for i := start; i < len(lines); i++ {
		for _, c := range lines[i] {
			switch c {
			case '{':
				balance++
				opened = true
			case '}':
				balance--
			}
		}
		if opened && balance <= 0 {
			return i
		}
	}
	end := start + maxUnbalancedExtent
	if end > len(lines)-1 {
		end = len(lines) - 1
	}
	return end
}

// indentExtentEnd ends the extent at the line before the first subsequent
// non-blank line indented at or below the definition line's level.
func indentExtentEnd(lines []string, start int) int {
	base := indentWidth(lines[start])
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if indentWidth(lines[i]) <= base {
			return i - 1
		}
	}
	return len(lines) - 1
}

func indentWidth(line string) int {
	for i, c := range line {
		if c != ' ' && c != '\t' {
			return i
		}
	}
	return len(line)
}

// collectCalls runs every call pattern over every line of the definition's
// extent, in source order. Self-calls and excluded names are dropped.
func collectCalls(lines []string, table *PatternTable, def *FunctionDefinition) []CallSite {
	var calls []CallSite
	for i := def.StartLine; i <= def.EndLine && i < len(lines); i++ {
		line := lines[i]
		for _, cp := range table.Calls {
			for _, m := range cp.Regex.FindAllStringSubmatchIndex(line, -1) {
				lo, hi := m[2*cp.NameGroup], m[2*cp.NameGroup+1]
				if lo < 0 {
					continue
				}
				name := line[lo:hi]
				if name == def.Name || table.Excluded(name) {
					continue
				}
				calls = append(calls, CallSite{
					Name: name,
					Range: Range{
						Start: Position{Line: i, Col: lo},
						End:   Position{Line: i, Col: hi},
					},
				})
			}
		}
	}
	return calls
}

// EnclosingClass returns the name of the nearest class-like definition
// whose extent encloses line, or "" when the line is top-level. Used to
// fill a symbol's container name.
func EnclosingClass(defs []FunctionDefinition, line int) string {
	container := ""
	for _, d := range defs {
		switch d.Kind {
		case KindClass, KindStruct, KindInterface, KindEnum, KindModule:
		default:
			continue
		}
		if d.StartLine < line && line <= d.EndLine {
			// Prefer the innermost (latest-starting) enclosing class.
			container = d.Name
		}
	}
	return container
}
