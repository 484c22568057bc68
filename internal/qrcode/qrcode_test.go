package qrcode

import (
	"bytes"
	"image/png"
	"testing"

	keeper "github.com/fmitra/otpkeeper"
)

func TestQRCode_Generate(t *testing.T) {
	tt := []struct {
		name    string
		content string
		size    int
		width   int
		errCode keeper.ErrCode
	}{
		{
			name:    "Valid URI",
			content: "otpauth://totp/GitHub:alice?secret=JBSWY3DPEHPK3PXP&issuer=GitHub",
			size:    128,
			width:   128,
		},
		{
			name:    "Default size",
			content: "otpauth://totp/GitHub:alice?secret=JBSWY3DPEHPK3PXP",
			size:    0,
			width:   DefaultSize,
		},
		{
			name:    "Empty content",
			content: "  ",
			size:    128,
			errCode: keeper.EBadRequest,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Generate(tc.content, tc.size)
			if tc.errCode != "" {
				if keeper.ErrorCode(err) != tc.errCode {
					t.Errorf("incorrect error code, want %s got %s", tc.errCode, keeper.ErrorCode(err))
				}
				return
			}
			if err != nil {
				t.Fatal("failed to generate qr code:", err)
			}

			img, err := png.Decode(bytes.NewReader(b))
			if err != nil {
				t.Fatal("invalid png:", err)
			}
			if img.Bounds().Dx() != tc.width {
				t.Errorf("incorrect width, want %v got %v", tc.width, img.Bounds().Dx())
			}
		})
	}
}
