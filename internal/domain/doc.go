// Package domain defines the value types shared by the report pipeline:
// metric rows, section summaries, health scores, recommendations and
// snapshots, plus the error kinds every layer reports with.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No network, storage or rendering concerns
//   - JSON/YAML tags are allowed (they're metadata, not behavior)
//   - Small pure helpers on the types are allowed
package domain
