package imaging

import (
	"image"
	"image/color"

	"github.com/cockroachdb/errors"
)

const placeholderSize = 512

// PlaceholderPNG renders the deterministic image stored in place of a
// generation rejected for content policy: a dark canvas with a lighter
// diagonal cross. Same bytes every call, so repeated violations dedupe in
// storage.
func PlaceholderPNG() ([]byte, error) {
	background := color.RGBA{R: 0x2b, G: 0x2b, B: 0x2b, A: 0xff}
	stroke := color.RGBA{R: 0x8a, G: 0x8a, B: 0x8a, A: 0xff}
	const strokeWidth = 8

	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	for y := 0; y < placeholderSize; y++ {
		for x := 0; x < placeholderSize; x++ {
			onDiagonal := abs(x-y) < strokeWidth || abs(x+y-placeholderSize+1) < strokeWidth
			if onDiagonal {
				img.Set(x, y, stroke)
			} else {
				img.Set(x, y, background)
			}
		}
	}

	data, err := EncodePNG(img)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
