// Package domain defines the core business types for the audience
// qualification and click-reporting pipeline.
//
// Types in this package are pure value objects with no behavior beyond small
// derived-value helpers, no database dependencies, and no HTTP concerns.
// They are the shared language between services, repositories, and the
// criteria layer.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Derived-value methods are allowed (they're pure functions on the type)
//   - Constants and enums belong here
package domain
