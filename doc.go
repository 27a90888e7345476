// Package mixsim simulates finite Gaussian mixtures whose clusters overlap by
// a requested amount.
//
// Overlap between clusters i and j is the sum of the two misclassification
// probabilities Ω(i,j) + Ω(j,i), where Ω(i,j) is the chance that a point drawn
// from cluster i is assigned to j by the Bayes rule. A run draws random
// proportions, centroids and covariances, then rescales the covariances until
// the average and/or maximum pairwise overlap hits its target.
//
// Subpackages:
//
//	matrix/    dense matrices, validators, Jacobi eigen decomposition, sample covariance
//	mixture/   mixture parameters, random sources and the parameter generator
//	overlap/   spectral pair parameters, Davies' quadratic form CDF, overlap maps
//	calibrate/ options, scale root finding and the single/dual target protocols
//	agreement/ partition agreement indices for benchmarking clusterings
//	config/    YAML and TOML run configuration
//	cmd/mixsim command line front end
//
// Quick start:
//
//	opts := calibrate.NewOptions(4, 3,
//		calibrate.WithAverageOverlap(0.05),
//		calibrate.WithMaximumOverlap(0.15),
//	)
//	res, err := calibrate.Simulate(mixture.NewSource(42), opts)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(res.AverageOverlap, res.MaximumOverlap)
//
// Installation:
//
//	go get github.com/katalvlaran/mixsim
package mixsim
