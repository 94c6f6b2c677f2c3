package importer

import (
	"os"

	"github.com/rotisserie/eris"

	"github.com/dawon-meat/trace-cli/internal/model"
)

// importText reads a scanner-output text file and feeds it to the label
// parser.
func importText(path string) ([]model.TraceRecord, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, eris.Wrap(err, "importer: read text file")
	}
	return FromText(string(data))
}
