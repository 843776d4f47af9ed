// File: internal/infra/adapters/qr/renderer.go
package qr

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"

	"telegram-pix-commerce/internal/domain/ports/adapter"
)

var _ adapter.QRRenderer = (*Renderer)(nil)

const defaultSize = 300

// Renderer encodes PIX copy-paste codes as PNG QR images.
type Renderer struct {
	size int
}

func NewRenderer() *Renderer {
	return &Renderer{size: defaultSize}
}

func (r *Renderer) Render(code string) ([]byte, error) {
	if code == "" {
		return nil, errors.New("qr code payload empty")
	}
	return qrcode.Encode(code, qrcode.High, r.size)
}
