package qr

import (
	"github.com/skip2/go-qrcode"
)

// Encode renders content as a PNG QR image of the given pixel size
func Encode(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
