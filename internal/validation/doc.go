// Package validation statically checks generated scene code before it is
// handed to the renderer.
//
// Validate parses the source with tree-sitter, then checks in order: a
// `from manim import` statement, exactly one top-level class inheriting an
// allow-listed scene base, a `construct(self)` method on that class, and
// finally that no import or bare call names a deny-listed module or builtin.
// The deny-list covers the realistic escape vectors. It is a best-effort
// filter, not an isolation boundary.
package validation
