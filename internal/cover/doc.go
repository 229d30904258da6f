// Package cover composites album art into a 2x2 playlist cover and encodes it as JPEG.
//
// # Layout
//
// A [Canvas] is a square pixel buffer split into four cells of side size/2, indexed row-major:
//
//	0 | 1
//	--+--
//	2 | 3
//
// Selection index i is drawn in cell i. Source images are cropped by one pixel on every edge
// and scaled to fill the cell. Cells without an album are filled with [Palette][i].
//
// # Concurrency
//
// Cell images load concurrently. Every [Canvas.Render] bumps the canvas version, and a load only
// draws if the version it started under is still current, so a superseded render never writes
// into a reused canvas.
//
// # Encoding
//
// [Encode] produces a JPEG [Blob]. The provider's upload ceiling is not enforced here;
// callers use [FitQuality] to find a quality whose base64 payload fits.
package cover
