// Package history provides undo/redo for the scene editor.
//
// History is a linear log of element-sequence snapshots with a cursor
// ("step") pointing at the current state. The log always holds at least one
// state; a fresh History starts with the empty sequence.
//
//	h := history.New(0) // unlimited
//
//	h.Record(elements, "Add Text")
//
//	prev, ok := h.Undo()
//	next, ok := h.Redo()
//
// # Branch Discarding
//
// Record truncates every state after the cursor before appending, so an edit
// made after an undo permanently discards the redoable future. There is no
// branching history.
//
// # Isolation
//
// States are copied on the way in and on the way out. Callers can never
// mutate a stored snapshot, so states kept for redo are exactly what was
// recorded.
package history
