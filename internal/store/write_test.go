package store

import (
	"testing"

	"github.com/roach88/firanno/internal/ir"
	"github.com/roach88/firanno/internal/testutil"
)

func TestWriteAnnotation_Idempotent(t *testing.T) {
	s, _ := openTestStore(t)
	ictx := ir.NewContext()
	ann, err := ir.MakeRunTransform(ictx, "firrtl.transforms.Foo")
	if err != nil {
		t.Fatalf("MakeRunTransform() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.WriteAnnotation(t.Context(), ann); err != nil {
			t.Fatalf("WriteAnnotation() iteration %d error = %v", i, err)
		}
	}

	n, err := s.CountAnnotations(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountAnnotations() = %d, want 1", n)
	}
}

func TestWriteAnnotation_InvalidHandle(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.WriteAnnotation(t.Context(), ir.Annotation{}); err == nil {
		t.Error("WriteAnnotation(zero) should fail")
	}
}

func TestWriteTargeted_DeduplicatesAttachments(t *testing.T) {
	s, _ := openTestStore(t)
	ictx := ir.NewContext()
	inline := ir.MakeInline(ictx)
	noDedup := ir.MakeNoDedup(ictx)

	items := []ir.Targeted{
		{Target: "~Top|Top>Leaf", Annotation: inline},
		{Target: "~Top|Top>Leaf", Annotation: inline},
		{Target: "~Top|Top>Other", Annotation: inline},
		{Target: "~Top|Top>Leaf", Annotation: noDedup},
	}
	if err := s.WriteTargeted(t.Context(), ictx.ID(), items); err != nil {
		t.Fatalf("WriteTargeted() error = %v", err)
	}

	atts, err := s.ReadAttachments(t.Context(), ictx.ID())
	if err != nil {
		t.Fatal(err)
	}
	if len(atts) != 3 {
		t.Fatalf("ReadAttachments() returned %d rows, want 3", len(atts))
	}
	for i, att := range atts {
		if att.Seq != int64(i+1) {
			t.Errorf("attachment %d seq = %d, want %d", i, att.Seq, i+1)
		}
	}
	if atts[2].AnnotationID != noDedup.ID() {
		t.Errorf("last attachment = %s, want NoDedup", atts[2].AnnotationID)
	}

	n, err := s.CountAnnotations(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountAnnotations() = %d, want 2", n)
	}
}

func TestWriteTargeted_AppendsAcrossCalls(t *testing.T) {
	s, _ := openTestStore(t)
	ictx := ir.NewContext()
	inline := ir.MakeInline(ictx)

	first := []ir.Targeted{{Target: "~Top|A", Annotation: inline}}
	second := []ir.Targeted{{Target: "~Top|B", Annotation: inline}}
	if err := s.WriteTargeted(t.Context(), "ctx-1", first); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteTargeted(t.Context(), "ctx-1", second); err != nil {
		t.Fatal(err)
	}

	atts, err := s.ReadAttachments(t.Context(), "ctx-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(atts) != 2 || atts[1].Target != "~Top|B" || atts[1].Seq != 2 {
		t.Errorf("ReadAttachments() = %+v", atts)
	}
}

func TestWriteTargeted_EmptyContextID(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.WriteTargeted(t.Context(), "", nil); err == nil {
		t.Error("WriteTargeted with empty context id should fail")
	}
}

func TestWriteTargeted_RollsBackOnInvalidHandle(t *testing.T) {
	s, _ := openTestStore(t)
	ictx := ir.NewContext()

	items := []ir.Targeted{
		{Target: "~Top|A", Annotation: ir.MakeInline(ictx)},
		{Target: "~Top|B"},
	}
	if err := s.WriteTargeted(t.Context(), "ctx-1", items); err == nil {
		t.Fatal("WriteTargeted with invalid handle should fail")
	}

	n, err := s.CountAnnotations(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("CountAnnotations() after rollback = %d, want 0", n)
	}
}

func TestWriteTargeted_InvalidUTF8ReturnsError(t *testing.T) {
	s, _ := openTestStore(t)
	ictx := testutil.NewContext(t)
	ictx.Intern(ir.NewKey(ir.KindRunTransform, "firrtl.transforms.\xff"))
	bad := ictx.Annotations()[0]

	items := []ir.Targeted{
		{Target: "~Top|A", Annotation: ir.MakeInline(ictx)},
		{Target: "~Top|B", Annotation: bad},
	}
	if err := s.WriteTargeted(t.Context(), ictx.ID(), items); err == nil {
		t.Fatal("WriteTargeted with an invalid UTF-8 parameter should fail")
	}
	if err := s.WriteContext(t.Context(), ictx); err == nil {
		t.Fatal("WriteContext with an invalid UTF-8 parameter should fail")
	}

	n, err := s.CountAnnotations(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("CountAnnotations() after rollback = %d, want 0", n)
	}
}

func TestWriteContext(t *testing.T) {
	s, _ := openTestStore(t)
	ictx := ir.NewContext()
	ir.MakeInline(ictx)
	ir.MakeNoDedup(ictx)
	if _, err := ir.MakeRunTransform(ictx, "firrtl.transforms.Foo"); err != nil {
		t.Fatal(err)
	}

	if err := s.WriteContext(t.Context(), ictx); err != nil {
		t.Fatalf("WriteContext() error = %v", err)
	}

	rows, err := s.ReadAnnotations(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("ReadAnnotations() returned %d rows, want 3", len(rows))
	}
	wantKinds := []ir.Kind{ir.KindInline, ir.KindNoDedup, ir.KindRunTransform}
	for i, row := range rows {
		if row.Kind != wantKinds[i] {
			t.Errorf("row %d kind = %s, want %s", i, row.Kind, wantKinds[i])
		}
		if row.Seq != int64(i+1) {
			t.Errorf("row %d seq = %d, want %d", i, row.Seq, i+1)
		}
	}
}
