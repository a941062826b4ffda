// Package loader resolves element source references into drawable handles.
//
// A source reference is the string stored on an image or video element.
// Supported forms:
//   - data: URLs (the durable form written to snapshots)
//   - file:// URLs and plain filesystem paths
//   - http:// and https:// URLs
//
// LoadImage decodes the bytes into an ImageHandle. LoadVideo probes MP4
// metadata (natural size and duration) and returns a VideoHandle that carries
// its own play/pause state. Each call resolves exactly once: with a handle, or
// with a *LoadError describing why the source could not be used.
//
// Concurrent fetches of the same source are coalesced. Decoded handles are
// never shared between calls because a video handle's play state belongs to
// the renderable that owns it.
package loader
