// Package calibrate generates Gaussian mixtures whose pairwise overlap hits
// a requested average, maximum, or both.
//
// A candidate mixture is drawn, its overlap in the limit of unbounded spread
// tells whether the target is reachable at all, and a bisection over a common
// covariance multiplier c (FindScale) drives the overlap to the target:
//
//	single target:  bracket [0,4], squared on failure, abandoned above 1e5;
//	dual target:    the pair holding the maximum is calibrated first, then
//	                every other cluster is shrunk until the average matches.
//
// Unreachable candidates are resampled up to Options.MaxResamplings times;
// running out is reported through Result.Fail, not as an error.
//
// Options:
//
//	– AverageOverlap / MaximumOverlap: targets in (0,1); 0 leaves a target unset.
//	– Spherical, Homogeneous:          covariance structure.
//	– MaxEccentricity, MinProportion:  shape of the draws.
//	– MaxResamplings, Tolerance, EvaluatorLimit: effort and accuracy.
//
// Errors (sentinel):
//
//	– ErrBadK … ErrBadLimit    invalid option values.
//	– ErrBadTarget, ErrNoTarget, ErrInconsistentTargets for the targets.
//
// Determinism: a Simulator consumes one rand.Source sequentially, so the same
// seed and options reproduce the same Result.
package calibrate
