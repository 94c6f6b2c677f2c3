package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dawon-meat/trace-cli/internal/model"
	"github.com/dawon-meat/trace-cli/internal/resilience"
	"github.com/dawon-meat/trace-cli/internal/scale"
	"github.com/dawon-meat/trace-cli/internal/store"
)

var scaleProduct string

var scaleCmd = &cobra.Command{
	Use:   "scale",
	Short: "Read weights from the floor scale and append production logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		product := scaleProduct
		if product == "" {
			product = cfg.Scale.Product
		}
		if product == "" {
			return eris.New("scale: no product name given (use --product)")
		}

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		reader, closeFn, err := openScaleInput()
		if err != nil {
			return err
		}
		defer closeFn()

		return logFrames(ctx, st, reader, product)
	},
}

// openScaleInput opens either the configured test file or the serial port.
// The port open is retried: indicators power up slower than the terminal.
func openScaleInput() (io.Reader, func(), error) {
	if cfg.Scale.TestFile != "" {
		f, err := os.Open(cfg.Scale.TestFile)
		if err != nil {
			return nil, nil, eris.Wrap(err, "scale: open test file")
		}
		return f, func() { f.Close() }, nil
	}

	var reader io.ReadCloser
	openCfg := resilience.RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		ShouldRetry:    func(error) bool { return true },
		OnRetry:        resilience.RetryLogger("scale", "open"),
	}
	err := resilience.Do(context.Background(), openCfg, func(context.Context) error {
		port, err := scale.OpenPort(cfg.Scale.Device, cfg.Scale.Baud)
		if err != nil {
			return err
		}
		reader = port
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return reader, func() { reader.Close() }, nil
}

// logFrames persists every stable frame until the stream ends.
func logFrames(ctx context.Context, st store.Store, r io.Reader, product string) error {
	frames, errs := scale.Stream(ctx, r)

	for frame := range frames {
		if !frame.Stable {
			continue
		}

		log, err := st.CreateLog(ctx, model.ProductionLog{
			Product:  product,
			WeightKg: frame.WeightKg,
			Source:   model.LogSourceScale,
		})
		if err != nil {
			zap.L().Error("scale: failed to persist weight",
				zap.Float64("weight_kg", frame.WeightKg),
				zap.Error(err),
			)
			continue
		}
		fmt.Printf("%s  %s  %.2fkg\n", log.LoggedAt.Format("15:04:05"), product, log.WeightKg)
	}

	if err := <-errs; err != nil {
		return err
	}
	return nil
}

func init() {
	scaleCmd.Flags().StringVar(&scaleProduct, "product", "", "product name for logged weights")
	rootCmd.AddCommand(scaleCmd)
}
