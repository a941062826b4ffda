// Package playback keeps one redraw driver running for every playing video.
//
// The Controller is reconciled against each published hydration view. A
// driver is a goroutine ticking at the configured frame rate and asking the
// render surface to redraw; it never touches the scene itself.
package playback
