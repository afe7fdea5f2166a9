package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tournevent/tradepost/internal/coordinator"
	"github.com/tournevent/tradepost/internal/events"
	"github.com/tournevent/tradepost/internal/ledger"
	"github.com/tournevent/tradepost/internal/lock"
	"github.com/tournevent/tradepost/internal/server"
	"github.com/tournevent/tradepost/internal/telemetry"
	"github.com/tournevent/tradepost/internal/trade"
	"github.com/tournevent/tradepost/pkg/shipping"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "tradepost",
	Short:   "Tradepost shipping - rates, labels and tracking for marketplace trades",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var ratesCmd = &cobra.Command{
	Use:   "rates [shipment.json]",
	Short: "Quote rates for a shipment read from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRates,
}

var trackCmd = &cobra.Command{
	Use:   "track <carrier> <tracking_number>",
	Short: "Print the tracking state of a shipment",
	Args:  cobra.ExactArgs(2),
	RunE:  runTrack,
}

func init() {
	rootCmd.AddCommand(serveCmd, ratesCmd, trackCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required to serve label endpoints")
	}

	b, err := initBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	coord := initCoordinator(cfg, b, logger, tracer)

	logger.Info("Starting tradepost",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
	)

	// Start HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		JWTSecret: cfg.JWTSecret,
		Checks:    b.checks,
	}, coord, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cliCoordinator builds a coordinator for one-shot commands. Rates and
// tracking need only the aggregator, so every store stays in memory.
func cliCoordinator() (*coordinator.Coordinator, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	coord := coordinator.New(coordinator.Deps{
		Aggregator: initAggregator(cfg, logger, nil),
		Trades:     trade.NewMemoryStore(),
		Locker:     lock.NewMemoryLocker(cfg.LockTTL),
		Ledger:     ledger.NewMemoryLedger(),
		Publisher:  events.NopPublisher{},
		Logger:     logger,
		Metrics:    telemetry.NewMetrics(nil),
	})
	return coord, func() { _ = logger.Sync() }, nil
}

type cliAddress struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

func (a cliAddress) toModel() shipping.Address {
	return shipping.Address(a)
}

type cliShipment struct {
	Origin      cliAddress `json:"origin"`
	Destination cliAddress `json:"destination"`
	Parcel      struct {
		Length       float64 `json:"length"`
		Width        float64 `json:"width"`
		Height       float64 `json:"height"`
		Weight       float64 `json:"weight"`
		DistanceUnit string  `json:"distance_unit"`
		MassUnit     string  `json:"mass_unit"`
	} `json:"parcel"`
}

func runRates(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var s cliShipment
	if err := json.NewDecoder(in).Decode(&s); err != nil {
		return fmt.Errorf("decode shipment: %w", err)
	}

	coord, done, err := cliCoordinator()
	if err != nil {
		return err
	}
	defer done()

	quote, err := coord.GetRates(cmd.Context(), &shipping.RateRequest{
		Origin:      s.Origin.toModel(),
		Destination: s.Destination.toModel(),
		Parcel: shipping.Parcel{
			Length:       s.Parcel.Length,
			Width:        s.Parcel.Width,
			Height:       s.Parcel.Height,
			Weight:       s.Parcel.Weight,
			DistanceUnit: shipping.DistanceUnit(s.Parcel.DistanceUnit),
			MassUnit:     shipping.MassUnit(s.Parcel.MassUnit),
		},
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), quote)
}

func runTrack(cmd *cobra.Command, args []string) error {
	coord, done, err := cliCoordinator()
	if err != nil {
		return err
	}
	defer done()

	info, err := coord.GetTracking(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), info)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
