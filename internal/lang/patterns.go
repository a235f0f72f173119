package lang

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ExtentStyle selects how a definition's textual extent is detected.
type ExtentStyle int

const (
	// ExtentBraces tracks {} balance forward from the definition line.
	ExtentBraces ExtentStyle = iota
	// ExtentIndent ends the extent at the first dedented non-blank line.
	ExtentIndent
)

// DefinitionPattern matches one shape of definition line.
type DefinitionPattern struct {
	Regex     *regexp.Regexp
	Kind      Kind
	NameGroup int
}

// CallPattern matches call expressions anywhere in a line.
type CallPattern struct {
	Regex     *regexp.Regexp
	NameGroup int
}

// PatternTable holds the full heuristic description of one language:
// how definitions look, how calls look, how extents are delimited, and
// which names are language noise rather than user code. Pure data; a
// future caller can swap in a real parser without touching anything
// layered above it.
type PatternTable struct {
	Language    string
	Extent      ExtentStyle
	Definitions []DefinitionPattern
	Calls       []CallPattern

	builtins map[string]struct{}
}

// Excluded reports whether name is a reserved word or built-in for this
// language (union of the shared control-flow set and the language's own
// builtins). Excluded names are never recorded as calls or definitions.
func (t *PatternTable) Excluded(name string) bool {
	if _, ok := sharedKeywords[name]; ok {
		return true
	}
	_, ok := t.builtins[name]
	return ok
}

// sharedKeywords are control-flow words common across the supported
// languages. They show up constantly in call position (`if (`, `for (`,
// `switch (`) and must never become edges.
var sharedKeywords = toSet(
	"if", "else", "elif", "for", "while", "do", "switch", "case", "default",
	"return", "break", "continue", "try", "catch", "finally", "except",
	"throw", "raise", "new", "delete", "typeof", "instanceof", "in", "of",
	"not", "and", "or", "is", "await", "async", "yield", "with", "pass",
	"defer", "go", "select", "range", "match", "loop", "sizeof", "assert",
)

func toSet(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func def(kind Kind, expr string) DefinitionPattern {
	return DefinitionPattern{Regex: regexp.MustCompile(expr), Kind: kind, NameGroup: 1}
}

func call(expr string) CallPattern {
	return CallPattern{Regex: regexp.MustCompile(expr), NameGroup: 1}
}

// identCall matches `name(` anywhere in a line. Shared by most tables.
var identCall = call(`\b([A-Za-z_$][A-Za-z0-9_$]*)\s*\(`)

var javascriptTable = &PatternTable{
	Language: "javascript",
	Extent:   ExtentBraces,
	Definitions: []DefinitionPattern{
		def(KindFunction, `^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`),
		def(KindClass, `^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`),
		def(KindFunction, `^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>|[A-Za-z_$][\w$]*\s*=>)`),
		def(KindMethod, `^\s+(?:(?:public|private|protected|static|async|get|set)\s+)*([A-Za-z_$][\w$]*)\s*\([^)]*\)\s*\{`),
	},
	Calls: []CallPattern{identCall},
	builtins: toSet(
		"console", "JSON", "Math", "Object", "Array", "String", "Number",
		"Boolean", "Promise", "Date", "RegExp", "Map", "Set", "Symbol",
		"Error", "parseInt", "parseFloat", "isNaN", "require", "setTimeout",
		"setInterval", "clearTimeout", "clearInterval", "fetch", "alert",
		"constructor", "super", "this", "function",
	),
}

var typescriptTable = &PatternTable{
	Language: "typescript",
	Extent:   ExtentBraces,
	Definitions: append([]DefinitionPattern{
		def(KindInterface, `^\s*(?:export\s+)?interface\s+([A-Za-z_$][\w$]*)`),
		def(KindEnum, `^\s*(?:export\s+)?(?:const\s+)?enum\s+([A-Za-z_$][\w$]*)`),
		def(KindVariable, `^\s*(?:export\s+)?type\s+([A-Za-z_$][\w$]*)\s*=`),
	}, javascriptTable.Definitions...),
	Calls:    javascriptTable.Calls,
	builtins: javascriptTable.builtins,
}

var pythonTable = &PatternTable{
	Language: "python",
	Extent:   ExtentIndent,
	Definitions: []DefinitionPattern{
		def(KindFunction, `^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`),
		def(KindClass, `^\s*class\s+([A-Za-z_]\w*)`),
	},
	Calls: []CallPattern{call(`\b([A-Za-z_]\w*)\s*\(`)},
	builtins: toSet(
		"print", "len", "range", "str", "int", "float", "bool", "list",
		"dict", "set", "tuple", "type", "isinstance", "issubclass", "super",
		"open", "input", "enumerate", "zip", "map", "filter", "sorted",
		"reversed", "sum", "min", "max", "abs", "round", "getattr",
		"setattr", "hasattr", "repr", "format", "iter", "next", "vars",
		"self", "lambda", "def", "class",
	),
}

var goTable = &PatternTable{
	Language: "go",
	Extent:   ExtentBraces,
	Definitions: []DefinitionPattern{
		def(KindMethod, `^func\s+\([^)]+\)\s+([A-Za-z_]\w*)\s*\(`),
		def(KindFunction, `^func\s+([A-Za-z_]\w*)\s*\(`),
		def(KindStruct, `^type\s+([A-Za-z_]\w*)\s+struct\b`),
		def(KindInterface, `^type\s+([A-Za-z_]\w*)\s+interface\b`),
	},
	Calls: []CallPattern{call(`\b([A-Za-z_]\w*)\s*\(`)},
	builtins: toSet(
		"len", "cap", "make", "new", "append", "copy", "delete", "close",
		"panic", "recover", "print", "println", "complex", "real", "imag",
		"min", "max", "clear", "func", "type", "struct", "interface",
		"string", "int", "int64", "int32", "uint", "byte", "rune", "bool",
		"float64", "float32", "error", "any",
	),
}

var rustTable = &PatternTable{
	Language: "rust",
	Extent:   ExtentBraces,
	Definitions: []DefinitionPattern{
		def(KindFunction, `^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+([A-Za-z_]\w*)`),
		def(KindStruct, `^\s*(?:pub(?:\([^)]*\))?\s+)?struct\s+([A-Za-z_]\w*)`),
		def(KindEnum, `^\s*(?:pub(?:\([^)]*\))?\s+)?enum\s+([A-Za-z_]\w*)`),
		def(KindInterface, `^\s*(?:pub(?:\([^)]*\))?\s+)?trait\s+([A-Za-z_]\w*)`),
	},
	Calls: []CallPattern{call(`\b([A-Za-z_]\w*)\s*\(`)},
	builtins: toSet(
		"println", "print", "eprintln", "format", "vec", "panic", "write",
		"writeln", "Some", "None", "Ok", "Err", "Box", "String", "Vec",
		"fn", "impl", "let", "mut", "unsafe", "drop",
	),
}

var javaTable = &PatternTable{
	Language: "java",
	Extent:   ExtentBraces,
	Definitions: []DefinitionPattern{
		def(KindClass, `^\s*(?:(?:public|private|protected|static|final|abstract)\s+)*class\s+([A-Za-z_]\w*)`),
		def(KindInterface, `^\s*(?:(?:public|private|protected)\s+)*interface\s+([A-Za-z_]\w*)`),
		def(KindEnum, `^\s*(?:(?:public|private|protected)\s+)*enum\s+([A-Za-z_]\w*)`),
		def(KindMethod, `^\s+(?:(?:public|private|protected|static|final|abstract|synchronized)\s+)+[\w<>\[\],.\s]*?\b([A-Za-z_]\w*)\s*\([^)]*\)\s*(?:throws\s[\w,.\s]+)?\{`),
	},
	Calls: []CallPattern{call(`\b([A-Za-z_]\w*)\s*\(`)},
	builtins: toSet(
		"System", "String", "Integer", "Long", "Double", "Boolean", "Math",
		"Object", "List", "Map", "Set", "ArrayList", "HashMap", "println",
		"printf", "valueOf", "toString", "equals", "hashCode", "super",
		"this", "class", "void",
	),
}

var rubyTable = &PatternTable{
	Language: "ruby",
	Extent:   ExtentIndent,
	Definitions: []DefinitionPattern{
		def(KindMethod, `^\s*def\s+(?:self\.)?([A-Za-z_]\w*[?!]?)`),
		def(KindClass, `^\s*class\s+([A-Z]\w*)`),
		def(KindModule, `^\s*module\s+([A-Z]\w*)`),
	},
	Calls: []CallPattern{call(`\b([a-z_]\w*[?!]?)\s*\(`)},
	builtins: toSet(
		"puts", "print", "p", "require", "require_relative", "raise",
		"attr_accessor", "attr_reader", "attr_writer", "include", "extend",
		"lambda", "proc", "send", "respond_to?", "new", "initialize",
	),
}

// genericTable handles unknown extensions with the lowest-common-denominator
// shapes: function, def, class.
var genericTable = &PatternTable{
	Language: "generic",
	Extent:   ExtentBraces,
	Definitions: []DefinitionPattern{
		def(KindFunction, `^\s*function\s+([A-Za-z_$][\w$]*)`),
		def(KindFunction, `^\s*def\s+([A-Za-z_]\w*)`),
		def(KindClass, `^\s*class\s+([A-Za-z_]\w*)`),
	},
	Calls:    []CallPattern{identCall},
	builtins: toSet("print", "println", "console"),
}

// tableByExt maps file extensions (with leading dot) to pattern tables.
var tableByExt = map[string]*PatternTable{
	".js":   javascriptTable,
	".jsx":  javascriptTable,
	".mjs":  javascriptTable,
	".cjs":  javascriptTable,
	".ts":   typescriptTable,
	".tsx":  typescriptTable,
	".py":   pythonTable,
	".pyw":  pythonTable,
	".go":   goTable,
	".rs":   rustTable,
	".java": javaTable,
	".rb":   rubyTable,
}

// TableForExt returns the pattern table for a file extension. The extension
// may be passed with or without the leading dot. Unknown extensions get the
// generic table; lookup never fails.
func TableForExt(ext string) *PatternTable {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if t, ok := tableByExt[ext]; ok {
		return t
	}
	return genericTable
}

// TableForFile returns the pattern table for a file path.
func TableForFile(path string) *PatternTable {
	return TableForExt(filepath.Ext(path))
}

// Supported reports whether path has an extension with a dedicated table.
func Supported(path string) bool {
	_, ok := tableByExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the fixed set of code extensions the symbol index
// scans, sorted for deterministic iteration.
func Extensions() []string {
	exts := make([]string, 0, len(tableByExt))
	for ext := range tableByExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
