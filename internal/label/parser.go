// Package label parses scanner-output packing label text into trace records.
//
// Label printers emit one record per 1-2 physical lines. The first line is
// pipe-delimited with fixed positions:
//
//	20251210|한우[설도]|서울길원초등학교(올본)|다짐|14.1kg|002192205667
//
// An optional second line starts with a company-internal label id (letter
// prefix followed by ten or more digits); it only tells the parser how many
// lines the record consumed and is never emitted as its own record.
package label

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dawon-meat/trace-cli/internal/model"
)

// ErrNoIdentifiers is returned when a non-empty input yields no records.
// It is a result condition, not a parse failure: the caller turns it into
// a "nothing found" notice for the batch.
var ErrNoIdentifiers = eris.New("label: no identifiers found")

// Result is the outcome of parsing one block of label text.
type Result struct {
	Records []model.TraceRecord
	// LabelSkipped counts records whose primary number was a letter-prefixed
	// internal label id. They are dropped here because the grading service
	// cannot resolve them, but the count is kept for the batch summary.
	LabelSkipped int
}

var (
	dateFieldRe   = regexp.MustCompile(`^\d{8}$`)
	labelLineRe   = regexp.MustCompile(`^[A-Za-z]\d{10,}`)
	productPartRe = regexp.MustCompile(`^(.+?)\[(.+?)\]$`)
	kgSuffixRe    = regexp.MustCompile(`(?i)kg\s*$`)
	destSuffixRe  = regexp.MustCompile(`\([^()]*\)\s*$`)
)

// Parse converts raw multi-line label text into trace records. Malformed
// lines are skipped one at a time; only a non-empty input producing zero
// records is reported, as ErrNoIdentifiers.
func Parse(text string) (*Result, error) {
	lines := splitLines(text)
	res := &Result{}

	i := 0
	for i < len(lines) {
		fields := strings.Split(lines[i], "|")
		if len(fields) < 6 || !dateFieldRe.MatchString(fields[0]) {
			// Stray header/footer line; advance one line and retry.
			i++
			continue
		}

		consumed := 1
		if i+1 < len(lines) {
			next := strings.Split(lines[i+1], "|")
			if labelLineRe.MatchString(next[0]) {
				consumed = 2
			}
		}

		rec := buildRecord(fields)
		if model.IsLabelNumber(rec.TraceNumber) {
			res.LabelSkipped++
		} else {
			res.Records = append(res.Records, rec)
		}

		i += consumed
	}

	if len(res.Records) == 0 {
		return nil, ErrNoIdentifiers
	}
	return res, nil
}

// buildRecord derives a trace record from a valid first line. Field layout:
// 0 date, 1 product[part], 2 destination(code), 3 processing type,
// 4 weight with kg suffix, 5 primary trace number.
func buildRecord(fields []string) model.TraceRecord {
	date := formatDate(fields[0])
	product, part := splitProductPart(fields[1])
	weight := strings.TrimSpace(kgSuffixRe.ReplaceAllString(fields[4], ""))
	dest := strings.TrimSpace(destSuffixRe.ReplaceAllString(strings.TrimSpace(fields[2]), ""))

	return model.TraceRecord{
		TraceNumber: strings.TrimSpace(fields[5]),
		BreedLabel:  product + " / " + part + " (" + weight + "kg)",
		BirthDate:   date,
		Delivery: &model.Delivery{
			Destination:    dest,
			CutName:        part,
			ProcessingType: strings.TrimSpace(fields[3]),
			WeightKg:       weight,
		},
	}
}

// splitProductPart splits "한우[설도]" into ("한우", "설도"). Lines without
// the bracketed part keep the whole field as product and "-" as part.
func splitProductPart(s string) (product, part string) {
	m := productPartRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return strings.TrimSpace(s), "-"
	}
	return m[1], m[2]
}

// formatDate converts YYYYMMDD to YYYY-MM-DD.
func formatDate(s string) string {
	return s[:4] + "-" + s[4:6] + "-" + s[6:8]
}

// splitLines normalizes the raw block: BOM strip, CRLF/LF split, per-line
// trim, empty lines removed.
func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
