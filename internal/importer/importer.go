// Package importer turns uploaded files (spreadsheet, scanner text, label
// image) into trace records for the ingest store.
package importer

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dawon-meat/trace-cli/internal/barcode"
	"github.com/dawon-meat/trace-cli/internal/label"
	"github.com/dawon-meat/trace-cli/internal/model"
)

// Importer dispatches file imports by extension.
type Importer struct {
	decoder barcode.Decoder
}

// New creates an Importer. decoder may be nil when image import is not
// configured; image files then fail with a clear message.
func New(decoder barcode.Decoder) *Importer {
	return &Importer{decoder: decoder}
}

// ImportFile reads one uploaded file and returns the parsed records plus
// the count of letter-prefixed label ids dropped during parsing.
func (im *Importer) ImportFile(ctx context.Context, path string) ([]model.TraceRecord, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		recs, err := ReadXLSX(path)
		return recs, 0, err
	case ".txt", ".dat", ".log":
		return importText(path)
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp":
		return im.importImage(ctx, path)
	default:
		return nil, 0, eris.Errorf("importer: unsupported file type %q", filepath.Ext(path))
	}
}

// FromText parses pasted or scanned label text.
func FromText(text string) ([]model.TraceRecord, int, error) {
	res, err := label.Parse(text)
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.LabelSkipped, nil
}

// FromPayloads converts decoded barcode payloads into records. A payload
// containing pipes is full label text; anything else is a bare number.
func FromPayloads(payloads []string) ([]model.TraceRecord, int) {
	var records []model.TraceRecord
	skipped := 0
	for _, p := range payloads {
		if strings.Contains(p, "|") {
			res, err := label.Parse(p)
			if err != nil {
				continue
			}
			records = append(records, res.Records...)
			skipped += res.LabelSkipped
			continue
		}

		records = append(records, model.TraceRecord{
			TraceNumber: model.NormalizeTraceNumber(p),
			BreedLabel:  "-",
			BirthDate:   "-",
		})
	}
	return records, skipped
}

func (im *Importer) importImage(ctx context.Context, path string) ([]model.TraceRecord, int, error) {
	if im.decoder == nil {
		return nil, 0, eris.New("importer: no barcode decoder configured")
	}
	payloads, err := im.decoder.Decode(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	recs, skipped := FromPayloads(payloads)
	return recs, skipped, nil
}
