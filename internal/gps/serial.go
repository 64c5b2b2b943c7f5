package gps

import (
	"context"
	"fmt"
	"io"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/sky-map-team/skyorient/internal/config"
)

// OpenSerial opens the receiver's port as 8N1 at the configured baud rate.
func OpenSerial(cfg config.GPSConfig) (io.ReadWriteCloser, error) {
	port, err := serial.Open(serial.OpenOptions{
		PortName:        cfg.Port,
		BaudRate:        cfg.Baud,
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	return port, nil
}

// Run opens the serial port and feeds it to t until ctx is done. Closing the
// port is what unblocks the pending read on shutdown.
func Run(ctx context.Context, cfg config.GPSConfig, t *Tracker) error {
	port, err := OpenSerial(cfg)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer func() {
		if stop() {
			_ = port.Close()
		}
	}()

	err = t.Consume(ctx, port)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
