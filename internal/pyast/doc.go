// Package pyast wraps the tree-sitter Python grammar with the few helpers the
// validator and sanitizer share: parsing, syntax error location, traversal
// and byte-range source edits.
package pyast
