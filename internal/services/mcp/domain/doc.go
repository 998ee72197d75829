// Package domain translates MCP tool calls into campaign session operations.
//
// Each tool maps to exactly one session method:
// - decode the typed tool input,
// - call the session (or the campaign catalog),
// - and return a compact result that MCP clients can render.
//
// The full session view is exposed as the session://current resource and
// every mutating tool notifies subscribers that it changed.
package domain
