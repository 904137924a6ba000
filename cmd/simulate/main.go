package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/parkprice/internal/simulate"
	"github.com/okian/parkprice/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		lots     = flag.Int("lots", simulate.DefaultLots, "Number of lots in the fleet")
		rounds   = flag.Int("rounds", simulate.DefaultRounds, "Number of batches to post")
		interval = flag.Duration("interval", simulate.DefaultInterval, "Pause between rounds")
		spread   = flag.Float64("spread", simulate.DefaultSpreadKm, "Half-width in km of the fleet area")
		lat      = flag.Float64("lat", simulate.DefaultCenterLat, "Fleet center latitude")
		lon      = flag.Float64("lon", simulate.DefaultCenterLon, "Fleet center longitude")
		special  = flag.Bool("special", false, "Mark every reading as a special day")
		seed     = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
		settle   = flag.Duration("settle", simulate.DefaultSettleTime, "How long to wait for the last tick")
		timeout  = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:       *baseURL,
		Lots:          *lots,
		Rounds:        *rounds,
		Interval:      *interval,
		SettleTimeout: *settle,
		Timeout:       *timeout,
		CenterLat:     *lat,
		CenterLon:     *lon,
		SpreadKm:      *spread,
		SpecialDay:    *special,
		Seed:          *seed,
		Verbose:       *verbose,
	}

	if _, err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1) //nolint:gocritic // deferred cancels already invoked
	}
}
