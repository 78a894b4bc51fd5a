// Package imaging turns image files into the rasters the line segment
// detector works on, and renders its results back into pictures.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y downward. For regions, (x1,y1) is inclusive and
// (x2,y2) exclusive.
//
// # Gradient Field
//
// Gradient converts an image to grey levels, optionally smooths it with a
// Gaussian of sigma SigmaScale/Scale and resamples it by Scale, then takes
// the gradient over each 2x2 block of pixels. The value at (x,y) describes
// the block whose top-left pixel is (x,y), so it sits half a pixel away from
// that pixel; the Frame of a GradientField undoes both that shift and the
// resampling when segments are mapped back to the source image.
//
// Orientation is the level-line angle in (-pi, pi] and is defined for every
// pixel; the blocks of the last row and column repeat the border. Magnitudes
// at or below the noise floor are zero, so those pixels never seed or join a
// region but remain available in the pixel status map.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless.
package imaging
