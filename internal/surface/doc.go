// Package surface provides the render surfaces the engine draws on.
//
// Terminal paints the scene onto a tcell screen, one cell standing for a
// fixed block of canvas units, and turns key and mouse input into Actions.
// Raster renders the scene into an image with gg for PNG export.
//
// Both implement engine.Surface: they keep the last published view and
// repaint it on Redraw.
package surface
