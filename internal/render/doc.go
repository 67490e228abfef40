// Package render runs the external manim renderer against validated scene
// code.
//
// Each Render call owns a fresh manim_* temp directory holding scene.py and
// the media tree, and removes it before returning. The renderer is started
// with an explicit argument vector in its own process group; when the
// deadline fires the whole group is killed and partial output is reported
// alongside a timeout error. Successful runs return the artifact bytes.
package render
