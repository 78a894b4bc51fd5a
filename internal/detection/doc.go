// Package detection implements a-contrario line segment detection on scalar
// gradient fields.
//
// The detector consumes two rasters of the same extent: the gradient
// magnitude and the level-line orientation (the gradient direction rotated by
// 90 degrees, so that it runs along an edge rather than across it). It
// returns rectangles (line segments with a width) whose meaningfulness is
// controlled by a Number of False Alarms bound, plus the per-pixel status map
// recording which pixels were claimed by a region.
//
// # Algorithm Overview
//
//  1. Seed ordering: pixels above the minimum gradient are bucketed by
//     quantized magnitude, highest first
//  2. Region growing: from each unused seed, 8-connected neighbours whose
//     orientation is within the angular tolerance of the region's circular
//     mean orientation are claimed
//  3. Rectangle fitting: the region's principal axis (second moments) gives
//     the rectangle orientation, projections give its length and width
//  4. Validation: the NFA of the rectangle is computed from the number of
//     aligned pixels it contains, NFA = NT * B(n, k, p)
//  5. Refinement: rejected rectangles are narrowed, trimmed at their weakest
//     end, or regrown under a tighter tolerance, and validated again
//  6. Thin-line merge: the two opposite edges of a thin line are accepted
//     separately and then joined into one rectangle on the line's center
//
// # Number of False Alarms
//
// Under the null hypothesis every pixel orientation is independent and
// uniform, so a pixel is aligned with a rectangle of tolerance prec with
// probability p = prec/pi. With n pixels in the rectangle and k of them
// aligned, the NFA is the number of tests NT times the binomial tail
// P(X >= k), X ~ Binomial(n, p). A rectangle is accepted when NFA <= epsilon;
// with epsilon = 1 at most one false detection is expected per image of pure
// noise.
//
// # Pixel Status
//
// Each pixel is NotUsed, Used or NotInitialized (undefined orientation). A
// pixel moves from NotUsed to Used once. The only way back is a rollback
// during refinement. Rollbacks queued while trimming a rectangle become
// visible to later seeds only after the current candidate is finished; the
// tolerance-tightening strategy releases its region at once and claims it
// back if it gives up.
//
// Building with the lsddebug tag turns status transition checks into panics.
//
// # Concurrency
//
// A Detect call is strictly sequential and owns its status map. A Detector
// holds no per-call state and can be shared. DetectTiled runs one independent
// detection per tile in parallel.
package detection
