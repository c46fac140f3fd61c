// Package qr renders share links as QR code PNGs.
package qr

import (
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Box size bounds in pixels per module.
const (
	MinBoxSize     = 1
	MaxBoxSize     = 40
	DefaultBoxSize = 10
)

var ErrEmptyContent = errors.New("qr: empty content")

// Render encodes content as a PNG with boxSize pixels per module and medium
// error correction. The quiet zone go-qrcode adds is kept so printed codes
// scan reliably.
func Render(content string, boxSize int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if boxSize < MinBoxSize || boxSize > MaxBoxSize {
		return nil, fmt.Errorf("qr: box size %d outside [%d, %d]", boxSize, MinBoxSize, MaxBoxSize)
	}

	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr: encoding: %w", err)
	}
	// A negative size asks go-qrcode for a fixed number of pixels per module.
	png, err := code.PNG(-boxSize)
	if err != nil {
		return nil, fmt.Errorf("qr: rendering png: %w", err)
	}
	return png, nil
}
