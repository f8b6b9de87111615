// Package imagehash computes 64-bit average-hash fingerprints and ranks
// stored fingerprints by Hamming similarity. The hash has no rotation or
// scale invariance; callers are expected to compare near-identically framed
// product photos.
package imagehash

import (
	"io"
	"strings"

	"github.com/disintegration/imaging"
	pkgerrors "github.com/fabrichouse/inventory-backend/pkg/errors"

	// Registers the WEBP decoder alongside imaging's built-in PNG/JPEG support.
	_ "golang.org/x/image/webp"
)

const (
	hashSide = 8

	// Size is the fingerprint length in bits.
	Size = hashSide * hashSide
)

// Compute derives the fingerprint for an image: downsample to 8x8 with
// bilinear interpolation, grayscale, then emit one bit per pixel in row-major
// order ('1' when the pixel is brighter than the mean). The result is
// deterministic for identical bytes.
func Compute(r io.Reader) (string, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeImageDecode, err, "decoding image")
	}

	small := imaging.Resize(img, hashSide, hashSide, imaging.Linear)
	gray := imaging.Grayscale(small)

	var total int
	for y := 0; y < hashSide; y++ {
		for x := 0; x < hashSide; x++ {
			// Grayscale output has R==G==B; the red channel is the luminance.
			total += int(gray.NRGBAAt(x, y).R)
		}
	}
	mean := float64(total) / float64(Size)

	var b strings.Builder
	b.Grow(Size)
	for y := 0; y < hashSide; y++ {
		for x := 0; x < hashSide; x++ {
			if float64(gray.NRGBAAt(x, y).R) > mean {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String(), nil
}
