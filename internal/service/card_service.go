package service

import (
	"strings"

	"github.com/skip2/go-qrcode"

	"ecoquest/internal/validation"
)

const (
	defaultCardSize = 320
	maxCardCodeLen  = 64
)

// CardService renders student ID card QR codes
type CardService struct {
	size int
}

func NewCardService(size int) *CardService {
	if size <= 0 {
		size = defaultCardSize
	}
	return &CardService{size: size}
}

func validateCardCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > maxCardCodeLen {
		return "", validation.New("A card code of 1 to 64 characters is required.")
	}
	return code, nil
}

// PNG returns the QR code for a card as PNG bytes
func (s *CardService) PNG(code string) ([]byte, error) {
	code, err := validateCardCode(code)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(code, qrcode.Medium, s.size)
}

// WriteFile writes the card QR code to path as PNG
func (s *CardService) WriteFile(code, path string) error {
	code, err := validateCardCode(code)
	if err != nil {
		return err
	}
	return qrcode.WriteFile(code, qrcode.Medium, s.size, path)
}
