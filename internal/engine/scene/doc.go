// Package scene provides the document model for the canvas editor.
//
// A Store is an immutable value holding the ordered element sequence and an
// optional selection. Index order is z-order: later elements are drawn on top.
// Every edit returns a new Store and reports whether anything changed, so the
// caller can decide whether to record the result in history.
//
// # Elements
//
// Element is a tagged variant discriminated by Kind:
//   - KindImage: position, size and a source reference
//   - KindText: position, width, content and font size (no stored height)
//   - KindVideo: position, size, a source reference and the playing flag
//
// Resizing edits clamp width and height to MinSize.
//
// # Boundary Behavior
//
// Index-based edits never fail. A missing selection, an out-of-range index or
// a reorder at the top/bottom of the stack leaves the store unchanged and
// returns false.
package scene
