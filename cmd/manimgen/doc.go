// Package main hosts the manimgen CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the HTTP daemon in the foreground,
// generates scene code from a description, renders or validates local scene
// files, reports dependency health, and scaffolds configuration. It
// centralizes configuration resolution and logger setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
