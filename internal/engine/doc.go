// Package engine provides the scene-editing engine for Stagecraft.
//
// The engine is the single mutation surface over a composition canvas: an
// ordered list of image, text and video elements with an optional selection.
// Every structural edit produces a new element snapshot that is recorded in a
// linear undo/redo history and handed to the hydration pipeline, which
// resolves image and video sources into drawable handles in the background.
//
// # Architecture
//
// The engine is built on two sub-packages:
//
//   - scene: the immutable element store and its pure edit operations
//   - history: the snapshot history with a cursor
//
// and collaborates with internal/hydrate (renderable view), internal/loader
// (source resolution for AddImage and AddVideo) and internal/persist
// (Save and Load).
//
// # What is recorded
//
// Adds, moves, drags, reorders and transforms are recorded. Selection
// changes and video playback toggles are not: undoing never changes which
// videos are playing beyond what the restored snapshot says.
//
// # Thread Safety
//
// All Engine operations are safe for concurrent use. Writes are serialised
// by a mutex; the render surface and playback drivers only read published
// views.
//
// # Basic Usage
//
//	e := engine.New(engine.WithPipeline(pipeline))
//
//	idx, _ := e.AddText("Hi")
//	e.Select(idx)
//	e.MoveSelected(10, 0)
//
//	e.Undo() // text back at its original position
//	e.Redo()
package engine
