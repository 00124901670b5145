package imagehash

import "math/bits"

// DistanceThreshold is the Hamming distance at or below which two
// fingerprints are considered to show the same image. The value follows the
// usual dHash guidance: distances above 10 are almost certainly different
// pictures.
const DistanceThreshold = 10

// Similarity is the result of comparing two fingerprints.
type Similarity struct {
	// Distance is the Hamming distance between the two 64-bit
	// fingerprints, in [0, 64].
	Distance int
	// Confidence falls linearly from 1.0 at distance 0 to 0.0 at the
	// threshold, and stays 0.0 beyond it.
	Confidence float64
	// Similar is true when Distance is at most DistanceThreshold.
	Similar bool
}

// Distance returns the Hamming distance between two fingerprints, treating
// both as fixed-width 64-bit strings. It is symmetric.
func Distance(h1, h2 uint64) int {
	return bits.OnesCount64(h1 ^ h2)
}

// Compare computes the Hamming distance, a confidence score, and a
// similarity verdict for two fingerprints.
func Compare(h1, h2 uint64) Similarity {
	d := Distance(h1, h2)
	s := Similarity{
		Distance: d,
		Similar:  d <= DistanceThreshold,
	}
	if s.Similar {
		s.Confidence = float64(DistanceThreshold-d) / DistanceThreshold
	}
	return s
}
