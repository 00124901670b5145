// Package imagehash computes 64-bit difference-hash fingerprints for images
// and compares them by Hamming distance to find duplicates and
// near-duplicates.
package imagehash

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// diffSize is the side of the difference matrix. The image is resized to
// (diffSize+1) × diffSize so each row yields diffSize horizontal
// comparisons, packing into exactly 64 bits.
const diffSize = 8

// Hash computes the difference hash of a decoded image.
//
// The image is reduced to a (diffSize+1) × diffSize grayscale thumbnail,
// then each pair of horizontally adjacent pixels is compared
// (pixel[x+1] > pixel[x]) and the resulting boolean grid is packed row-major,
// least-significant bit first. The result is deterministic for identical
// input.
func Hash(img image.Image) uint64 {
	gray := image.NewGray(image.Rect(0, 0, diffSize+1, diffSize))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)

	var hash uint64
	for y := 0; y < diffSize; y++ {
		for x := 0; x < diffSize; x++ {
			if gray.GrayAt(x+1, y).Y > gray.GrayAt(x, y).Y {
				hash |= 1 << uint(y*diffSize+x)
			}
		}
	}
	return hash
}

// HashFile decodes the image at path and returns its fingerprint. A file
// that cannot be opened or decoded is a normal miss, reported as an error so
// the caller can record the fingerprint as absent. Zero is a valid hash and
// never stands in for a missing one.
func HashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode image %q: %w", path, err)
	}
	return Hash(img), nil
}
