// Package qr renders transport text into QR symbols and reads it back from images.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register gif
	_ "image/jpeg" // register jpeg
	_ "image/png"  // register png

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	skipqr "github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"

	"github.com/punchamoorthee/qrpay/internal/domain"
)

const (
	DefaultModulePixels  = 10
	DefaultMaxFrameWidth = 1280
)

// Engine is the QR symbol collaborator: Render for text to image, Scan for image to text.
type Engine struct {
	modulePixels  int
	maxFrameWidth int
	level         skipqr.RecoveryLevel
}

// NewEngine returns an engine rendering modulePixels per module with the highest error correction.
// Frames wider than maxFrameWidth are downscaled before detection; zero disables scaling.
func NewEngine(modulePixels, maxFrameWidth int) *Engine {
	if modulePixels < 1 {
		modulePixels = DefaultModulePixels
	}
	return &Engine{modulePixels: modulePixels, maxFrameWidth: maxFrameWidth, level: skipqr.Highest}
}

// Render encodes text as a PNG image.
func (e *Engine) Render(text string) ([]byte, error) {
	code, err := skipqr.New(text, e.level)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	// negative size means pixels per module
	png, err := code.PNG(-e.modulePixels)
	if err != nil {
		return nil, fmt.Errorf("qr png: %w", err)
	}
	return png, nil
}

// RenderImage encodes text as an in-memory image.
func (e *Engine) RenderImage(text string) (image.Image, error) {
	code, err := skipqr.New(text, e.level)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return code.Image(-e.modulePixels), nil
}

// Terminal renders text as a block-character string suitable for a terminal.
func (e *Engine) Terminal(text string) (string, error) {
	code, err := skipqr.New(text, skipqr.Medium)
	if err != nil {
		return "", fmt.Errorf("qr encode: %w", err)
	}
	return code.ToSmallString(false), nil
}

// Scan returns the text of the first QR symbol found in img, or domain.ErrNoPayloadDetected.
func (e *Engine) Scan(img image.Image) (string, error) {
	img = e.fit(img)

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("qr bitmap: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := zxingqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNoPayloadDetected, err)
	}
	if result.GetText() == "" {
		return "", domain.ErrNoPayloadDetected
	}
	return result.GetText(), nil
}

// ScanBytes decodes an encoded PNG, JPEG or GIF image and scans it.
func (e *Engine) ScanBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return e.Scan(img)
}

// DecodeFrame turns an encoded camera frame into an image.
func DecodeFrame(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// fit downscales img to maxFrameWidth, keeping the aspect ratio.
func (e *Engine) fit(img image.Image) image.Image {
	b := img.Bounds()
	if e.maxFrameWidth <= 0 || b.Dx() <= e.maxFrameWidth {
		return img
	}
	h := b.Dy() * e.maxFrameWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, e.maxFrameWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
