package imaging

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
)

// Decode decodes PNG, JPEG or GIF bytes.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrap(err, "can't decode image")
	}
	return img, format, nil
}

const (
	compressStartQuality = 90
	compressMinQuality   = 30
	compressQualityStep  = 10
)

// CompressJPEG re-encodes the image as JPEG, stepping quality down until the
// output fits targetBytes. Returns the smallest attempt if even minimum
// quality overshoots.
func CompressJPEG(img image.Image, targetBytes int) ([]byte, error) {
	if targetBytes <= 0 {
		return nil, errors.Wrap(errs.InvalidArgument, "target size must be positive")
	}
	var smallest []byte
	for quality := compressStartQuality; quality >= compressMinQuality; quality -= compressQualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, errors.Wrap(err, "can't encode jpeg")
		}
		if buf.Len() <= targetBytes {
			return buf.Bytes(), nil
		}
		if smallest == nil || buf.Len() < len(smallest) {
			smallest = buf.Bytes()
		}
	}
	return smallest, nil
}

// Thumbnail scales the image down so its longest side is maxDim, using
// nearest-neighbor sampling. Images already small enough are returned as-is.
func Thumbnail(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDim && height <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(width)
	if height > width {
		scale = float64(maxDim) / float64(height)
	}
	dstWidth := int(float64(width) * scale)
	dstHeight := int(float64(height) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	for y := 0; y < dstHeight; y++ {
		srcY := bounds.Min.Y + y*height/dstHeight
		for x := 0; x < dstWidth; x++ {
			srcX := bounds.Min.X + x*width/dstWidth
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

// EncodePNG encodes the image as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "can't encode png")
	}
	return buf.Bytes(), nil
}
