package ir

// Annotation is a handle to an interned Storage.
//
// Handles are plain values: copy them freely, compare them with ==, and use
// them as map keys. Two handles from the same Context are equal iff their
// keys are equal. The zero Annotation is invalid and has the empty kind.
type Annotation struct {
	s *Storage
}

// IsValid reports whether the handle refers to a Storage.
func (a Annotation) IsValid() bool {
	return a.s != nil
}

// Kind returns the kind discriminator.
func (a Annotation) Kind() Kind {
	if a.s == nil {
		return ""
	}
	return a.s.key.Kind
}

// Is reports whether the annotation has the given kind.
func (a Annotation) Is(kind Kind) bool {
	return a.Kind() == kind
}

// Class returns the fully qualified class name, e.g. "firrtl.passes.InlineAnnotation".
func (a Annotation) Class() string {
	return ClassPrefix + string(a.Kind())
}

// Storage returns the canonical storage behind the handle.
func (a Annotation) Storage() *Storage {
	return a.s
}

// Key returns a copy of the interned key.
func (a Annotation) Key() Key {
	if a.s == nil {
		return Key{}
	}
	return a.s.Key()
}

// Params returns a copy of the parameters.
func (a Annotation) Params() []string {
	if a.s == nil {
		return nil
	}
	return a.s.Params()
}

func (a Annotation) String() string {
	if a.s == nil {
		return "<invalid annotation>"
	}
	return a.s.key.String()
}

// TransformName returns the transform requested by a RunFirrtlTransform annotation.
// Panics with *KindMismatchError on any other kind.
func (a Annotation) TransformName() string {
	a.mustBe(KindRunTransform, "TransformName")
	return a.s.Param(0)
}

func (a Annotation) mustBe(kind Kind, accessor string) {
	if a.Kind() != kind {
		panic(&KindMismatchError{Accessor: accessor, Want: kind, Got: a.Kind()})
	}
}

// Targeted pairs an annotation with the IR target it applies to,
// e.g. "~Top|Foo". The target is not part of the annotation's identity.
type Targeted struct {
	Target     string
	Annotation Annotation
}
