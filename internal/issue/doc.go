// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing errors that carry remediation hints,
// and a catalog of Markdown help pages rendered with glamour.
package issue
