// Package queryir provides an abstract query representation for reading
// stored annotations back out of the store.
//
// Queries name fields of the stored model, never SQL columns:
//
//	[CLI flags] → [Query IR] → [SQL Backend] → rows → ir.Context
//
// A backend (see package querysql) maps fields to its own schema, so the
// same query can run against any store layout.
//
// QUERY TYPES:
//   - Annotations(filter) - distinct interned annotations, one per storage
//   - Targeted(filter, limit) - (target, annotation) attachments of contexts
//
// PREDICATES:
//   - Equals(field, value) - exact, byte-wise comparison
//   - Prefix(field, value) - value is a leading substring of field
//   - And(predicates...) - all must hold, empty means always true
//
// There is no OR and no negation. A disjunction is two queries.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed with marker methods, so backends can switch
// exhaustively over the types of this package:
//
//	switch q := query.(type) {
//	case Annotations:
//	    // annotations table only
//	case Targeted:
//	    // attachments joined with annotations
//	}
//
// Values are always strings. Kinds, targets, IDs and context IDs are all
// text in the stored model.
package queryir
