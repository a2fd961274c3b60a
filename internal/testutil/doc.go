// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// The helpers cover working-directory changes (MustChdir, MustGetwd),
// fixture files (MustWriteFile, MustWriteJSON, MustReadFile) and scratch git
// repositories (InitRepo, Commit).
package testutil
