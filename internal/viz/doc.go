// Package viz renders step responses of a tuned loop next to the plant it
// was tuned for.
//
// An [Overlay] simulates every [Series] on one shared time grid and places
// markers on each stable curve:
//
//   - settling: first sample at or after the settling time
//   - peak: the maximum output, only when the response overshoots
//   - final: the steady-state value near the right edge of the axis
//
// The time axis spans max(longest settling time, 5s) × 1.8 and the output
// axis reaches 1.2 × the largest peak. Unstable curves are drawn without
// markers and do not widen the axes.
//
// Marker labels are hidden until toggled. [Annotations] tracks which are
// shown and resolves a click position to the nearest marker within 5% of
// each axis span.
//
// # Rendering
//
//   - [RenderASCII]: static chart via asciigraph
//   - [Viewer]: Bubble Tea program drawing the overlay on a braille [Canvas]
//
// # Key Bindings
//
//	←/→, Tab  - Select marker
//	Enter     - Toggle selected marker label
//	A         - Show or hide every label
//	Click     - Toggle the label of the marker under the pointer
//	T         - Cycle color themes
//	?         - Show help overlay
//	Q         - Quit
package viz
