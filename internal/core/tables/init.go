// Package tables registers the table definitions with the core registry.
// Import it for its side effects.
package tables
