package lang

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableForExt(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "javascript", TableForExt(".js").Language)
	assert.Equal(t, "typescript", TableForExt(".tsx").Language)
	assert.Equal(t, "python", TableForExt(".py").Language)
	assert.Equal(t, "go", TableForExt(".go").Language)
	assert.Equal(t, "generic", TableForExt(".txt").Language)
	assert.Equal(t, "generic", TableForExt("").Language)
}

func TestTableForExt_Normalization(t *testing.T) {
	t.Parallel()
	// Leading dot optional, case-insensitive.
	assert.Equal(t, "go", TableForExt("go").Language)
	assert.Equal(t, "python", TableForExt(".PY").Language)
}

func TestTableForFile(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "rust", TableForFile("src/lib.rs").Language)
	assert.Equal(t, "generic", TableForFile("Makefile").Language)
}

func TestSupported(t *testing.T) {
	t.Parallel()
	assert.True(t, Supported("a/b/c.ts"))
	assert.True(t, Supported("server.RB"))
	assert.False(t, Supported("notes.md"))
	assert.False(t, Supported("binary"))
}

func TestExtensions_Sorted(t *testing.T) {
	t.Parallel()
	exts := Extensions()
	assert.True(t, sort.StringsAreSorted(exts))
	assert.Contains(t, exts, ".go")
	assert.Contains(t, exts, ".java")
}

func TestExcluded(t *testing.T) {
	t.Parallel()
	table := TableForExt(".go")
	assert.True(t, table.Excluded("if"), "shared keyword")
	assert.True(t, table.Excluded("append"), "language builtin")
	assert.False(t, table.Excluded("Append"))
	assert.False(t, table.Excluded("handleRequest"))
}
