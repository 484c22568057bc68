// Package qrcode renders otpauth URIs as PNG QR codes.
package qrcode

import (
	"fmt"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"

	keeper "github.com/fmitra/otpkeeper"
)

// DefaultSize is the image width in pixels when none is configured.
const DefaultSize = 256

// Generate returns a PNG QR code of the content.
func Generate(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, keeper.ErrBadRequest("qr code content cannot be empty")
	}
	if size <= 0 {
		size = DefaultSize
	}

	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate qr code: %w", err)
	}

	return png, nil
}
