// Package store provides SQLite-backed persistence for interned annotations.
//
// The store is the serializer layer of the annotation system. It records:
//   - Annotations: one row per distinct (kind, params), keyed by ir.AnnotationID
//   - Attachments: which annotation applies to which target, per context
//
// Loading a store re-interns every annotation through the construction API of
// a fresh ir.Context, so a round trip yields identity-equal handles for
// content-equal annotations.
//
// # Ordering
//
// All queries use ORDER BY seq ASC, id ASC COLLATE BINARY so reads are
// deterministic regardless of insertion timing.
//
// # Queries
//
// QueryAnnotations and QueryTargeted take a queryir query, compile it with
// querysql and re-intern the matching rows the same way Load does.
//
// # Versioning
//
// The meta table records the ir.IRVersion that created the database. Open
// refuses a database whose major version differs from the running one.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Attachments must reference stored annotations
package store
