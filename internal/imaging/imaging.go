package imaging

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg" // register jpeg for image.Decode
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// Decode parses PNG or JPEG bytes.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	return img, nil
}

// EncodePNG renders an image back to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Fingerprint hashes the raw pixel bytes of an image, so the same picture
// re-encoded (jpeg quality, png filters, metadata) still maps to one id.
func Fingerprint(img image.Image) string {
	h := sha1.New()
	b := img.Bounds()
	px := make([]byte, 0, 8)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			px = append(px[:0],
				byte(r>>8), byte(g>>8), byte(bl>>8), byte(a>>8))
			h.Write(px)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Downscale caps the longer edge at maxSize, preserving aspect ratio.
// Images already within bounds are returned as-is.
func Downscale(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = maxSize
		nh = h * maxSize / w
	} else {
		nh = maxSize
		nw = w * maxSize / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// FullMask builds an all-white mask matching the image size, PNG-encoded.
// The generation backend treats it as "repaint everything".
func FullMask(img image.Image) ([]byte, error) {
	b := img.Bounds()
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i := range mask.Pix {
		mask.Pix[i] = 0xff
	}
	return EncodePNG(mask)
}
