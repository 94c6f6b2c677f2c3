package barcode

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// ZbarImg decodes barcodes using the zbarimg CLI tool.
type ZbarImg struct {
	binPath string
}

// NewZbarImg creates a ZbarImg decoder. If binPath is empty, "zbarimg" is used.
func NewZbarImg(binPath string) *ZbarImg {
	if binPath == "" {
		binPath = "zbarimg"
	}
	return &ZbarImg{binPath: binPath}
}

// Decode runs zbarimg --raw -q on the image and returns one payload per
// detected symbol. An image with no detectable barcode is an error; the
// caller surfaces it as a batch-level notice.
func (z *ZbarImg) Decode(ctx context.Context, imagePath string) ([]string, error) {
	cmd := exec.CommandContext(ctx, z.binPath, "--raw", "-q", imagePath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "barcode: zbarimg failed for %s: %s", imagePath, stderr.String())
	}

	var payloads []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			payloads = append(payloads, line)
		}
	}
	if len(payloads) == 0 {
		return nil, eris.Errorf("barcode: no barcode found in %s", imagePath)
	}
	return payloads, nil
}
