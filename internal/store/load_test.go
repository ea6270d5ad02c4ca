package store

import (
	"errors"
	"testing"

	"github.com/roach88/firanno/internal/ir"
	"github.com/roach88/firanno/internal/testutil"
)

func TestLoad_RoundTripPreservesIdentity(t *testing.T) {
	s, _ := openTestStore(t)
	src := ir.NewContext()
	foo, err := ir.MakeRunTransform(src, "firrtl.transforms.Foo")
	if err != nil {
		t.Fatal(err)
	}
	items := []ir.Targeted{
		{Target: "~Top|Leaf", Annotation: ir.MakeInline(src)},
		{Target: "~Top|Leaf", Annotation: ir.MakeNoDedup(src)},
		{Annotation: foo},
	}
	if err := s.WriteTargeted(t.Context(), src.ID(), items); err != nil {
		t.Fatal(err)
	}

	dst := ir.NewContext()
	got, err := s.LoadTargeted(t.Context(), dst, src.ID())
	if err != nil {
		t.Fatalf("LoadTargeted() error = %v", err)
	}
	if len(got) != len(items) {
		t.Fatalf("LoadTargeted() returned %d items, want %d", len(got), len(items))
	}
	for i := range items {
		if got[i].Target != items[i].Target {
			t.Errorf("item %d target = %q, want %q", i, got[i].Target, items[i].Target)
		}
		if !got[i].Annotation.Key().Equal(items[i].Annotation.Key()) {
			t.Errorf("item %d key = %s, want %s", i, got[i].Annotation.Key(), items[i].Annotation.Key())
		}
	}

	// Content-equal requests in the loading context yield the loaded handles.
	if got[0].Annotation != ir.MakeInline(dst) {
		t.Error("loaded inline annotation is not the canonical handle")
	}
	again, _ := ir.MakeRunTransform(dst, "firrtl.transforms.Foo")
	if got[2].Annotation != again {
		t.Error("loaded run-transform annotation is not the canonical handle")
	}
	if dst.Len() != 3 {
		t.Errorf("dst.Len() = %d, want 3", dst.Len())
	}
}

func TestLoadTargeted_InternsOnlyTheRequestedContext(t *testing.T) {
	s, _ := openTestStore(t)
	gen := testutil.NewSequentialIDGenerator("ctx")
	first := testutil.NewContext(t, ir.WithIDGenerator(gen))
	second := testutil.NewContext(t, ir.WithIDGenerator(gen))
	if first.ID() != "ctx-1" || second.ID() != "ctx-2" {
		t.Fatalf("context IDs = %q, %q", first.ID(), second.ID())
	}

	if err := s.WriteTargeted(t.Context(), first.ID(), []ir.Targeted{
		{Target: "~Top|A", Annotation: ir.MakeInline(first)},
		{Target: "~Top|B", Annotation: ir.MakeInline(first)},
	}); err != nil {
		t.Fatal(err)
	}
	foo, _ := ir.MakeRunTransform(second, "firrtl.transforms.Foo")
	bar, _ := ir.MakeRunTransform(second, "firrtl.transforms.Bar")
	if err := s.WriteTargeted(t.Context(), second.ID(), []ir.Targeted{
		{Annotation: foo},
		{Annotation: bar},
		{Target: "~Top|A", Annotation: ir.MakeNoDedup(second)},
	}); err != nil {
		t.Fatal(err)
	}

	// Every key shares one bucket, so reuse below relies on key equality.
	dst := testutil.NewContext(t, ir.WithHasher(testutil.CollidingHasher))
	got, err := s.LoadTargeted(t.Context(), dst, first.ID())
	if err != nil {
		t.Fatalf("LoadTargeted(%s) error = %v", first.ID(), err)
	}
	if len(got) != 2 || got[0].Target != "~Top|A" || got[1].Target != "~Top|B" {
		t.Fatalf("LoadTargeted(%s) = %v", first.ID(), got)
	}
	if got[0].Annotation != got[1].Annotation {
		t.Error("both attachments should share one handle")
	}
	if dst.Len() != 1 {
		t.Errorf("dst.Len() after loading %s = %d, want 1", first.ID(), dst.Len())
	}

	got, err = s.LoadTargeted(t.Context(), dst, second.ID())
	if err != nil {
		t.Fatalf("LoadTargeted(%s) error = %v", second.ID(), err)
	}
	if len(got) != 3 {
		t.Fatalf("LoadTargeted(%s) returned %d items, want 3", second.ID(), len(got))
	}
	if dst.Len() != 4 {
		t.Errorf("dst.Len() after loading %s = %d, want 4", second.ID(), dst.Len())
	}
	again, _ := ir.MakeRunTransform(dst, "firrtl.transforms.Bar")
	if got[1].Annotation != again {
		t.Error("loaded Bar is not the canonical handle under a colliding hasher")
	}

	none, err := s.LoadTargeted(t.Context(), dst, "ctx-3")
	if err != nil || len(none) != 0 {
		t.Errorf("LoadTargeted(unknown) = %v, %v; want empty", none, err)
	}
}

func TestLoad_RejectsTamperedRow(t *testing.T) {
	s, _ := openTestStore(t)
	src := ir.NewContext()
	ann, err := ir.MakeRunTransform(src, "firrtl.transforms.Foo")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteAnnotation(t.Context(), ann); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec(`UPDATE annotations SET params = '["firrtl.transforms.Bar"]'`); err != nil {
		t.Fatal(err)
	}

	_, err = s.Load(t.Context(), ir.NewContext())
	var ierr *IntegrityError
	if !errors.As(err, &ierr) {
		t.Fatalf("Load() error = %v, want *IntegrityError", err)
	}
	if ierr.StoredID != ann.ID() {
		t.Errorf("StoredID = %s, want %s", ierr.StoredID, ann.ID())
	}
}

func TestLoad_RejectsMalformedRow(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.db.Exec(`INSERT INTO annotations (id, kind, params, seq) VALUES ('x', ?, '[""]', 1)`,
		string(ir.KindRunTransform))
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Load(t.Context(), ir.NewContext())
	if !errors.Is(err, ir.ErrMalformed) {
		t.Errorf("Load() error = %v, want ErrMalformed", err)
	}
}

func TestLoad_UnknownKind(t *testing.T) {
	s, _ := openTestStore(t)
	src := ir.NewContext()
	custom := ir.Variant{Kind: "custom.Marker"}
	if err := src.Register(custom); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteAnnotation(t.Context(), src.MustMake("custom.Marker")); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(t.Context(), ir.NewContext()); err == nil {
		t.Error("Load() into a context without the variant should fail")
	}

	dst := ir.NewContext()
	if err := dst.Register(custom); err != nil {
		t.Fatal(err)
	}
	anns, err := s.Load(t.Context(), dst)
	if err != nil {
		t.Fatalf("Load() with registered variant error = %v", err)
	}
	if len(anns) != 1 || anns[0].Kind() != "custom.Marker" {
		t.Errorf("Load() = %v", anns)
	}
}

func TestListContextsAndLastSeq(t *testing.T) {
	s, _ := openTestStore(t)

	seq, err := s.GetLastSeq(t.Context())
	if err != nil || seq != 0 {
		t.Fatalf("GetLastSeq() on empty store = %d, %v", seq, err)
	}

	ictx := ir.NewContext(ir.WithClock(ir.NewClockAt(41)))
	inline := ir.MakeInline(ictx)
	for _, id := range []string{"ctx-b", "ctx-a"} {
		if err := s.WriteTargeted(t.Context(), id, []ir.Targeted{{Target: "~Top|A", Annotation: inline}}); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := s.ListContexts(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "ctx-a" || ids[1] != "ctx-b" {
		t.Errorf("ListContexts() = %v", ids)
	}

	seq, err = s.GetLastSeq(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if seq != inline.Storage().Seq() {
		t.Errorf("GetLastSeq() = %d, want %d", seq, inline.Storage().Seq())
	}
}
