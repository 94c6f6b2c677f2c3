// Package barcode decodes traceability barcodes from label photos.
package barcode

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dawon-meat/trace-cli/internal/config"
)

// Decoder extracts barcode payloads from an image file.
type Decoder interface {
	Decode(ctx context.Context, imagePath string) ([]string, error)
}

// NewDecoder creates a Decoder based on config.
func NewDecoder(cfg config.BarcodeConfig) (Decoder, error) {
	switch cfg.Provider {
	case "zbar", "":
		return NewZbarImg(cfg.ZbarImgPath), nil
	default:
		return nil, eris.Errorf("barcode: unknown provider %q", cfg.Provider)
	}
}
