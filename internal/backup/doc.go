// Package backup exports a key/value table as JSON lines, optionally
// xz-compressed, and imports such exports back into a table. An export
// starts with a Header line followed by one Entry per stored command.
package backup
