package compiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firanno/internal/ir"
)

const sampleJSON = `[
  {"class": "firrtl.passes.InlineAnnotation", "target": "~Top|Foo"},
  {"class": "firrtl.transforms.NoDedupAnnotation", "target": "~Top|Bar"},
  {"class": "firrtl.stage.RunFirrtlTransformAnnotation", "transform": "firrtl.transforms.Foo"}
]`

func TestDecodeJSON(t *testing.T) {
	records, err := DecodeJSON(strings.NewReader(sampleJSON))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Record{Index: 0, Class: "firrtl.passes.InlineAnnotation", Target: "~Top|Foo"}, records[0])
	assert.Equal(t, 2, records[2].Index)
	assert.Equal(t, map[string]string{"transform": "firrtl.transforms.Foo"}, records[2].Fields)
}

func TestDecodeJSONRejectsNonString(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`[{"class": "firrtl.passes.InlineAnnotation", "target": 3}]`))

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrFieldNotString, cerr.Code)
	assert.Equal(t, "target", cerr.Field)
}

func TestDecodeJSONSyntaxError(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`[{"class": `))

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrDecode, cerr.Code)
}

func TestDecodeEmptyInputIsConsistent(t *testing.T) {
	for _, name := range []string{"a.json", "a.yaml", "a.yml"} {
		for _, input := range []string{"", "  \n"} {
			records, err := DecodeBytes(name, []byte(input))
			require.NoError(t, err, "%s %q", name, input)
			assert.Empty(t, records, "%s %q", name, input)
		}
	}
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"second array", `[{"class": "firrtl.passes.InlineAnnotation"}] []`},
		{"stray bracket", `[] ]`},
		{"garbage", `[] x`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON(strings.NewReader(tt.input))

			var cerr *CompileError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, ErrDecode, cerr.Code)
		})
	}

	records, err := DecodeJSON(strings.NewReader("[]\n\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecodeYAML(t *testing.T) {
	input := `
- class: firrtl.passes.InlineAnnotation
  target: "~Top|Foo"
- class: firrtl.stage.RunFirrtlTransformAnnotation
  transform: firrtl.transforms.Foo
`
	records, err := DecodeYAML(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "~Top|Foo", records[0].Target)
	assert.Equal(t, "firrtl.transforms.Foo", records[1].Fields["transform"])
}

func TestDecodeYAMLEmpty(t *testing.T) {
	records, err := DecodeYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecodeYAMLRejectsNonString(t *testing.T) {
	_, err := DecodeYAML(strings.NewReader("- class: firrtl.stage.RunFirrtlTransformAnnotation\n  transform: 12\n"))

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrFieldNotString, cerr.Code)
}

func TestEncodeJSONRoundTrip(t *testing.T) {
	ctx := ir.NewContext()
	records, err := DecodeJSON(strings.NewReader(sampleJSON))
	require.NoError(t, err)

	compiled, errs := CompileRecords(ctx, records, Options{})
	require.Empty(t, errs)

	back := make([]Record, len(compiled))
	for i, c := range compiled {
		back[i], err = ToRecord(ctx, c)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, back))
	assert.Contains(t, buf.String(), `"target": "~Top|Foo"`)

	reread, err := DecodeJSON(&buf)
	require.NoError(t, err)

	recompiled, errs := CompileRecords(ctx, reread, Options{})
	require.Empty(t, errs)
	assert.Equal(t, compiled, recompiled)
	assert.Equal(t, 3, ctx.Len())
}
