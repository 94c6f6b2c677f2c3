// Package scale decodes weight frames from the serial-connected floor scale.
//
// The indicator streams line-delimited frames like
//
//	ST,GS,+  14.25kg
//	US,GS,+  14.31kg
//
// ST marks a stable reading, US an unstable one. Only stable frames are
// logged.
package scale

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Frame is one decoded weight reading.
type Frame struct {
	WeightKg float64
	Stable   bool
	Raw      string
}

var frameRe = regexp.MustCompile(`(?i)^(ST|US),(?:GS|NT),\s*\+?\s*([0-9]+(?:\.[0-9]+)?)\s*kg`)

// ParseFrame decodes one line from the indicator. Lines that are not
// weight frames (status chatter, partial reads) return false.
func ParseFrame(line string) (Frame, bool) {
	line = strings.TrimSpace(line)
	m := frameRe.FindStringSubmatch(line)
	if m == nil {
		return Frame{}, false
	}

	weight, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Frame{}, false
	}

	return Frame{
		WeightKg: weight,
		Stable:   strings.EqualFold(m[1], "ST"),
		Raw:      line,
	}, true
}

// Stream reads frames from r until EOF or context cancellation.
// Non-frame lines are dropped. Both channels are closed when processing
// completes.
func Stream(ctx context.Context, r io.Reader) (<-chan Frame, <-chan error) {
	frameCh := make(chan Frame, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(frameCh)
		defer close(errCh)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "scale: context cancelled")
				return
			}

			frame, ok := ParseFrame(scanner.Text())
			if !ok {
				continue
			}

			select {
			case frameCh <- frame:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "scale: context cancelled")
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- eris.Wrap(err, "scale: read")
		}
	}()

	return frameCh, errCh
}
