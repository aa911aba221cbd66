package source

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

// NewQR генерирует баннер с QR-кодом для payload (обычно ссылка на рекламу).
func NewQR(payload string, size int) (*Still, error) {
	if payload == "" {
		return nil, errors.New("пустые данные для QR-кода")
	}
	if size <= 0 {
		size = 600
	}
	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return NewStill(code.Image(size)), nil
}
