//go:build !linux

package render

// IsTerminal always reports false off Linux, so output is never cleared or colored there.
func IsTerminal(uintptr) bool { return false }
