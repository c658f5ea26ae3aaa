// Package slipcheck inspects uploaded payment slips. Thai bank transfer slips
// carry a verification QR code; a slip without one is suspicious but is not
// rejected.
package slipcheck

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// MaxPixels bounds the decoded slip size. A phone screenshot is a few
// megapixels; a small compressed file can declare far larger dimensions.
const MaxPixels = 40_000_000

var (
	// ErrNotImage the payload could not be decoded as JPEG or PNG
	ErrNotImage = errors.New("slip is not a decodable image")
	// ErrTooLarge the image header declares more than MaxPixels
	ErrTooLarge = errors.New("slip image dimensions too large")
)

// HasQRCode decodes data as an image and reports whether a QR code is visible.
// Dimensions are read from the header first so oversized images are never
// allocated.
func HasQRCode(data []byte) (bool, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return false, fmt.Errorf("%w: %dx%d", ErrNotImage, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return false, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	if _, err := qrcode.NewQRCodeReader().Decode(bmp, nil); err != nil {
		return false, nil
	}
	return true, nil
}
