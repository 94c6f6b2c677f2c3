package scale

import (
	"github.com/rotisserie/eris"
	"go.bug.st/serial"
)

// OpenPort opens the indicator's serial device with 8N1 framing.
func OpenPort(device string, baud int) (serial.Port, error) {
	if device == "" {
		return nil, eris.New("scale: no serial device configured")
	}
	if baud <= 0 {
		baud = 9600
	}

	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scale: open %s", device)
	}
	return port, nil
}
