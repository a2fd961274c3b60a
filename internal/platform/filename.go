// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform file naming helpers.
package platform

import "strings"

// windowsReservedNames cannot be used as a file name on Windows, with or
// without an extension.
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsWindowsReservedName reports whether name, ignoring any extension, is a
// reserved device name.
func IsWindowsReservedName(name string) bool {
	upper := strings.ToUpper(name)
	if idx := strings.IndexByte(upper, '.'); idx != -1 {
		upper = upper[:idx]
	}
	return windowsReservedNames[upper]
}

// SafeFileName turns a directory base name into a prefix usable for report
// files on every platform. Characters Windows rejects become '_', and a
// reserved device name gets a trailing '_'. An empty or dot-only name
// becomes "root".
func SafeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`<>:"/\|?*`, r):
			return '_'
		default:
			return r
		}
	}, name)
	name = strings.TrimRight(name, ". ")
	if name == "" {
		return "root"
	}
	if IsWindowsReservedName(name) {
		name += "_"
	}
	return name
}
