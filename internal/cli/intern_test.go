package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firanno/internal/compiler"
	"github.com/roach88/firanno/internal/ir"
	"github.com/roach88/firanno/internal/store"
)

func internJSON(t *testing.T, path, db string) InternResult {
	t.Helper()
	out, _, err := execute(t, "intern", path, "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   InternResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestInternFirstWriterWins(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")

	first := internJSON(t, "testdata/valid.json", db)
	assert.NotEmpty(t, first.ContextID)
	assert.Equal(t, 1, first.Files)
	assert.Equal(t, 4, first.Annotations)
	assert.Equal(t, 3, first.Storages)
	assert.Equal(t, 3, first.Stored)

	second := internJSON(t, "testdata/valid.json", db)
	assert.NotEqual(t, first.ContextID, second.ContextID)
	assert.Equal(t, 3, second.Storages)
	assert.Equal(t, 0, second.Stored, "content-equal annotations are stored once")

	third := internJSON(t, "testdata/valid.cue", db)
	assert.Equal(t, 1, third.Stored, "only the Bar transform is new")
}

func TestInternSeqContinuesAcrossRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")
	internJSON(t, "testdata/valid.json", db)
	internJSON(t, "testdata/valid.cue", db)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	rows, err := st.ReadAnnotations(t.Context())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	kinds := make([]ir.Kind, len(rows))
	for i, row := range rows {
		kinds[i] = row.Kind
		if i > 0 {
			assert.Greater(t, row.Seq, rows[i-1].Seq, "seq must increase across runs")
		}
	}
	assert.Equal(t, []ir.Kind{ir.KindInline, ir.KindNoDedup, ir.KindRunTransform, ir.KindRunTransform}, kinds)
	assert.Equal(t, []string{"firrtl.transforms.Bar"}, rows[3].Params)
	assert.Equal(t, int64(6), rows[3].Seq, "second run starts after the stored maximum of 3")

	last, err := st.GetLastSeq(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(6), last)
}

func TestInternText(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")

	out, _, err := execute(t, "intern", "testdata/valid.json", "--db", db)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "✓ Interned 4 annotation(s) as 3 storage(s) (3 new) in "+db+"\n"))
	assert.Contains(t, out, "  context: ")
}

func TestInternInvalidWritesNothing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")

	out, _, err := execute(t, "intern", "testdata/invalid.json", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E202")

	_, statErr := os.Stat(db)
	assert.True(t, os.IsNotExist(statErr), "database must not be created")
}

func TestInternRequiresDB(t *testing.T) {
	_, _, err := execute(t, "intern", "testdata/valid.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestInternNotFound(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")
	out, _, err := execute(t, "intern", "testdata/missing.json", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestDumpAll(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")
	internJSON(t, "testdata/valid.json", db)

	out, _, err := execute(t, "dump", "--db", db)
	require.NoError(t, err)

	records, err := compiler.DecodeJSON(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "firrtl.passes.InlineAnnotation", records[0].Class)
	assert.Equal(t, "firrtl.transforms.NoDedupAnnotation", records[1].Class)
	assert.Equal(t, "firrtl.stage.RunFirrtlTransformAnnotation", records[2].Class)
	assert.Equal(t, map[string]string{"transform": "firrtl.transforms.Foo"}, records[2].Fields)
	for _, rec := range records {
		assert.Empty(t, rec.Target, "untargeted dump carries no targets")
	}
}

func TestDumpContext(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")
	res := internJSON(t, "testdata/valid.json", db)
	internJSON(t, "testdata/valid.cue", db)

	out, _, err := execute(t, "dump", "--db", db, "--context", res.ContextID, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data DumpResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "1.0.0", resp.Data.IRVersion)
	assert.Len(t, resp.Data.Contexts, 2)
	assert.Equal(t, res.ContextID, resp.Data.ContextID)
	assert.Equal(t, []map[string]string{
		{"class": "firrtl.passes.InlineAnnotation", "target": "~Top|Leaf"},
		{"class": "firrtl.passes.InlineAnnotation", "target": "~Top|Other"},
		{"class": "firrtl.transforms.NoDedupAnnotation", "target": "~Top|Leaf"},
		{"class": "firrtl.stage.RunFirrtlTransformAnnotation", "transform": "firrtl.transforms.Foo"},
	}, resp.Data.Annotations)
}

func TestDumpList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")
	a := internJSON(t, "testdata/valid.json", db)
	b := internJSON(t, "testdata/valid.cue", db)

	out, _, err := execute(t, "dump", "--db", db, "--list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.ElementsMatch(t, []string{a.ContextID, b.ContextID}, lines)
}

func TestDumpOutputRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "annos.db")
	res := internJSON(t, "testdata/valid.json", db)

	dumped := filepath.Join(dir, "dumped.json")
	out, _, err := execute(t, "dump", "--db", db, "--context", res.ContextID, "-o", dumped)
	require.NoError(t, err)
	assert.Equal(t, "✓ Wrote 4 annotation(s) to "+dumped+"\n", out)

	// The dumped file is itself a valid annotation file.
	out, _, err = execute(t, "check", dumped)
	require.NoError(t, err)
	assert.Equal(t, "✓ 4 annotation(s) in 1 file(s), 3 storage(s)\n", out)
}

func TestDumpUnknownContext(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")
	internJSON(t, "testdata/valid.json", db)

	out, _, err := execute(t, "dump", "--db", db, "--context", "no-such-context")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestDumpMissingDatabase(t *testing.T) {
	out, _, err := execute(t, "dump", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "database not found")
}

func TestDumpKindFilter(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")
	internJSON(t, "testdata/valid.json", db)
	internJSON(t, "testdata/valid.cue", db)

	out, _, err := execute(t, "dump", "--db", db, "--kind", "firrtl.stage.RunFirrtlTransformAnnotation")
	require.NoError(t, err)

	records, err := compiler.DecodeJSON(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "firrtl.transforms.Foo", records[0].Fields["transform"])
	assert.Equal(t, "firrtl.transforms.Bar", records[1].Fields["transform"])
}

func TestDumpTargetPrefixAcrossContexts(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")
	internJSON(t, "testdata/valid.json", db)
	internJSON(t, "testdata/valid.cue", db)

	out, _, err := execute(t, "dump", "--db", db,
		"--kind", "passes.InlineAnnotation", "--target-prefix", "~Top|Le", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data DumpResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	want := map[string]string{"class": "firrtl.passes.InlineAnnotation", "target": "~Top|Leaf"}
	assert.Equal(t, []map[string]string{want, want}, resp.Data.Annotations, "one attachment per intern run")
}

func TestDumpUnknownKind(t *testing.T) {
	db := filepath.Join(t.TempDir(), "annos.db")
	internJSON(t, "testdata/valid.json", db)

	out, _, err := execute(t, "dump", "--db", db, "--kind", "firrtl.passes.Bogus")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E202")
}
