// Package hydrate derives the renderable view of a scene.
//
// Each call to Pipeline.Update starts a pass tagged with a new generation.
// A pass resolves every image and video element through a loader.Resolver
// concurrently and publishes the joined result only when no newer pass has
// started in the meantime. Superseded passes are cancelled and their results
// dropped, so a slow load can never overwrite a newer view.
//
// A failed load does not fail the pass: the element is published with Err
// set and the render surface draws a placeholder for it.
package hydrate
