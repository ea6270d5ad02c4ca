package queryir

// Query represents an abstract read of stored annotations.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition on a Query.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Field names a property of a stored annotation or attachment.
type Field string

const (
	// FieldID is the content ID of the annotation (ir.AnnotationID).
	FieldID Field = "id"
	// FieldKind is the registered kind, e.g. "passes.InlineAnnotation".
	FieldKind Field = "kind"
	// FieldContext is the ID of the context that wrote an attachment.
	FieldContext Field = "context"
	// FieldTarget is the FIRRTL target of an attachment.
	FieldTarget Field = "target"
)

// annotationFields are the fields every query can filter on. Attachment
// fields only exist on Targeted.
var annotationFields = map[Field]bool{
	FieldID:   true,
	FieldKind: true,
}

// Annotations reads distinct stored annotations.
//
// Semantics:
//
//	SELECT id, kind, params, seq FROM annotations WHERE <filter>
//
// Results come back in seq order, so a reload interns storages in the order
// they were first created.
type Annotations struct {
	Filter Predicate // nil = every annotation
}

func (Annotations) queryNode() {}

// Targeted reads attachments together with the annotation each one names.
//
// Example:
//
//	Targeted{
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: FieldKind, Value: "passes.InlineAnnotation"},
//	    Prefix{Field: FieldTarget, Value: "~Top|"},
//	  }},
//	}
//
// Results are grouped by context and come back in write order within each.
type Targeted struct {
	Filter Predicate // nil = every attachment
	Limit  int       // 0 = no limit
}

func (Targeted) queryNode() {}

// Equals holds when the field is byte-wise equal to Value.
type Equals struct {
	Field Field
	Value string
}

func (Equals) predicateNode() {}

// Prefix holds when Value is a leading substring of the field.
//
//	Prefix{Field: FieldTarget, Value: "~Top|"}
//
// matches every target inside circuit Top.
type Prefix struct {
	Field Field
	Value string
}

func (Prefix) predicateNode() {}

// And holds when all predicates hold. Empty Predicates is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// All combines the non-nil predicates. It returns nil when none remain and
// the predicate itself when only one does.
func All(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
