package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/mjaakko/gtfs-graphql-api/api"
	"github.com/mjaakko/gtfs-graphql-api/config"
	"github.com/mjaakko/gtfs-graphql-api/gtfs"
	"github.com/mjaakko/gtfs-graphql-api/gtfsrt"
	"github.com/mjaakko/gtfs-graphql-api/internal"
	"github.com/mjaakko/gtfs-graphql-api/provider"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yml", "YAML configuration file; ignored when the default file is absent")
	mode := flag.String("mode", "serve", "serve|oneshot")
	vehiclePositions := flag.String("vehiclePositions", "", "GTFS-RT VehiclePositions URL or file (oneshot, overrides config)")
	flag.Parse()

	path := *configPath
	if !flagSet("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.LoadAppConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := internal.InitLogging(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "serve":
		err = serve(ctx, cfg, log)
	case "oneshot":
		vp := cfg.GTFSRT.VehiclePositionsURL
		if *vehiclePositions != "" {
			vp = *vehiclePositions
		}
		err = oneshot(ctx, cfg, vp, os.Stdout, log)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Error("exiting", "error", err)
		stop()
		os.Exit(1)
	}
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func newSource(cfg *config.AppConfig, log *slog.Logger) provider.Source {
	if cfg.GTFS.URL != "" {
		return provider.NewHTTPSource(cfg.GTFS.URL, provider.HTTPSourceOptions{
			Interval: cfg.GTFS.UpdateInterval,
			Retries:  cfg.GTFS.DownloadRetries,
		}, log)
	}
	return provider.NewFileSource(cfg.GTFS.Path, cfg.GTFS.PollInterval, cfg.GTFS.Debounce, log)
}

func indexOptions(cfg *config.AppConfig) gtfs.IndexOptions {
	return gtfs.IndexOptions{
		TripIDCacheSize:     cfg.Cache.TripIDs,
		PolylineCacheWeight: cfg.Cache.PolylineChars,
	}
}

// serve runs the refresh pipeline, the realtime feed and the HTTP server
// until ctx is done or one of them fails. The server starts listening once
// the first GTFS snapshot is published.
func serve(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) error {
	holder := provider.NewHolder()
	pipeline := provider.NewPipeline(newSource(cfg, log), gtfs.ZipParser{}, holder, indexOptions(cfg), log)

	var vehicles api.VehicleSource
	var feed *gtfsrt.Feed
	if url := cfg.GTFSRT.VehiclePositionsURL; url != "" {
		feed = gtfsrt.NewFeed(gtfsrt.NewClient(cfg.GTFSRT.Timeout), url, cfg.GTFSRT.UpdateInterval, log)
		vehicles = feed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pipeline.Run(ctx) })
	if feed != nil {
		g.Go(func() error { return feed.Run(ctx) })
	}

	idx, err := holder.WaitForIndex(ctx, cfg.GTFS.StartupTimeout)
	if err != nil {
		cancel()
		werr := g.Wait()
		if errors.Is(err, provider.ErrStartupTimeout) {
			return fmt.Errorf("no GTFS data after %s: %w", cfg.GTFS.StartupTimeout, err)
		}
		return werr
	}
	log.Info("GTFS data ready", "snapshot", idx.ID())

	handler := api.NewHandler(holder, vehicles, pipeline, log)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg.Server.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Streams end when the server shuts down.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		log.Info("server shut down")
		return nil
	})
	return g.Wait()
}

type summary struct {
	Source           string          `json:"source"`
	SnapshotID       string          `json:"snapshotId"`
	Stats            gtfs.Stats      `json:"stats"`
	VehiclePositions *vehicleSummary `json:"vehiclePositions,omitempty"`
}

type vehicleSummary struct {
	Total   int `json:"total"`
	Matched int `json:"matched"`
}

// oneshot loads the feed once and prints a summary. With a vehicle
// positions URL or file it also reports how many vehicles match a
// scheduled trip.
func oneshot(ctx context.Context, cfg *config.AppConfig, vehiclePositions string, out io.Writer, log *slog.Logger) error {
	src := newSource(cfg, log)
	a, err := src.Load(ctx, func(provider.State) {})
	if err != nil {
		return fmt.Errorf("load feed: %w", err)
	}
	defer a.Release()

	feed, err := gtfs.ZipParser{}.ParseFile(ctx, a.Path)
	if err != nil {
		return err
	}
	idx, err := gtfs.NewIndex(feed, indexOptions(cfg))
	if err != nil {
		return err
	}
	res := summary{Source: src.Name(), SnapshotID: idx.ID(), Stats: idx.Stats()}

	if vehiclePositions != "" {
		data, err := newFetcher(gtfsrt.NewClient(cfg.GTFSRT.Timeout)).fetch(ctx, vehiclePositions)
		if err != nil {
			return err
		}
		positions, err := gtfsrt.Decode(data)
		if err != nil {
			return err
		}
		vs := &vehicleSummary{Total: len(positions)}
		for i := range positions {
			if _, ok := positions[i].ResolveTrip(idx); ok {
				vs.Matched++
			}
		}
		res.VehiclePositions = vs
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
