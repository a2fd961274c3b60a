// SPDX-License-Identifier: MPL-2.0

// Package dependency defines the dependency record shared by every stage of a
// license scan, together with the parser for combined dependency identifiers
// such as "@scope/name@1.2.3".
//
// Records are produced by the ecosystem extractors, adjusted in place by the
// license policy, and consumed read-only by report aggregation.
package dependency
