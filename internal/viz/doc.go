// Package viz draws a running sphere simulation in the terminal.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [Model]: steps a physics manager on a ticker and renders each
//     snapshot
//   - [Canvas]: Braille-based pixel canvas; spheres that collided are
//     filled and drawn in the theme's highlight colour
//   - [Camera]: orbiting perspective projection built on mgl64 rotations
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	N     - Step one frame while paused
//	R     - Respawn the scenario
//	X/Y/Z - Rotate the camera
//	+/-   - Zoom
//	A     - Toggle auto orbit
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
