package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firanno/internal/ir"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompileFileAllFormatsAgree(t *testing.T) {
	files := map[string]string{
		"annos.json": `[
			{"class": "firrtl.passes.InlineAnnotation", "target": "~Top|Leaf"},
			{"class": "firrtl.stage.RunFirrtlTransformAnnotation", "transform": "firrtl.transforms.Foo"}
		]`,
		"annos.yaml": `
- class: firrtl.passes.InlineAnnotation
  target: "~Top|Leaf"
- class: firrtl.stage.RunFirrtlTransformAnnotation
  transform: firrtl.transforms.Foo
`,
		"annos.cue": `
annotations: [
	{class: "firrtl.passes.InlineAnnotation", target: "~Top|Leaf"},
	{class: "firrtl.stage.RunFirrtlTransformAnnotation", transform: "firrtl.transforms.Foo"},
]
`,
	}

	ctx := ir.NewContext()
	var first []ir.Targeted
	for name, content := range files {
		out, errs := CompileFile(ctx, writeFile(t, name, content), Options{})
		require.Empty(t, errs, name)
		require.Len(t, out, 2, name)
		if first == nil {
			first = out
			continue
		}
		assert.Equal(t, first, out, name)
	}
	assert.Equal(t, 2, ctx.Len())
}

func TestDecodeFileCUEPositionsNameFile(t *testing.T) {
	path := writeFile(t, "bad.cue", `annotations: [{class: "firrtl.stage.RunFirrtlTransformAnnotation", transform: string}]`)

	_, err := DecodeFile(path)
	var cerr *CompileError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrFieldNotString, cerr.Code)
	require.True(t, cerr.Pos.IsValid())
	assert.Equal(t, path, cerr.Pos.Filename())
}

func TestDecodeFileUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "annos.toml", `x = 1`)

	_, err := DecodeFile(path)
	var cerr *CompileError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrUnsupportedFormat, cerr.Code)
}

func TestDecodeFileMissing(t *testing.T) {
	_, err := DecodeFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestIsAnnotationFile(t *testing.T) {
	assert.True(t, IsAnnotationFile("a.json"))
	assert.True(t, IsAnnotationFile("dir/a.YML"))
	assert.True(t, IsAnnotationFile("a.cue"))
	assert.False(t, IsAnnotationFile("a.txt"))
	assert.False(t, IsAnnotationFile("json"))
}
