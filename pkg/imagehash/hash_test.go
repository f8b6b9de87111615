package imagehash

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	pkgerrors "github.com/fabrichouse/inventory-backend/pkg/errors"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// halfToneImage is bright on the bottom half and dark on the top half, so the
// expected fingerprint is unambiguous regardless of resampling kernel.
func halfToneImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			c := color.NRGBA{A: 255}
			if y >= 32 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return encodePNG(t, img)
}

func gradientImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8((x * 255) / 63)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return encodePNG(t, img)
}

func TestComputeLengthAndAlphabet(t *testing.T) {
	hash, err := Compute(bytes.NewReader(gradientImage(t)))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(hash) != Size {
		t.Fatalf("expected %d-bit fingerprint, got %d", Size, len(hash))
	}
	if strings.Trim(hash, "01") != "" {
		t.Fatalf("fingerprint contains non-bit characters: %q", hash)
	}
}

func TestComputeDeterministic(t *testing.T) {
	data := gradientImage(t)

	first, err := Compute(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := Compute(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if first != second {
		t.Fatalf("fingerprints differ for identical bytes:\n%s\n%s", first, second)
	}
}

func TestComputeHalfTonePattern(t *testing.T) {
	hash, err := Compute(bytes.NewReader(halfToneImage(t)))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := strings.Repeat("0", 32) + strings.Repeat("1", 32)
	if hash != want {
		t.Fatalf("unexpected fingerprint:\n got %s\nwant %s", hash, want)
	}
}

func TestComputeDistinguishesImages(t *testing.T) {
	a, err := Compute(bytes.NewReader(halfToneImage(t)))
	if err != nil {
		t.Fatalf("compute a: %v", err)
	}
	b, err := Compute(bytes.NewReader(gradientImage(t)))
	if err != nil {
		t.Fatalf("compute b: %v", err)
	}
	if a == b {
		t.Fatal("different images should not share a fingerprint")
	}
}

func TestComputeRejectsGarbage(t *testing.T) {
	_, err := Compute(bytes.NewReader([]byte("not an image")))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeImageDecode) {
		t.Fatalf("expected IMAGE_DECODE_ERROR, got %v", err)
	}
}
