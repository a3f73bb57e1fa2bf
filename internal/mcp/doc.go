// Package mcp exposes a minutes session as Model Context Protocol tools
// over stdio, so an assistant can extract tasks from notes and manage
// the resulting task list.
package mcp
