// Command factored runs the fact-ingest service: an HTTP front end (and
// optionally a Kafka consumer) that normalizes inbound messages into
// facts, derives secondary indices, and evaluates counters against a
// document store.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"factored/internal/catalog"
	"factored/internal/counter"
	"factored/internal/fieldmap"
	"factored/internal/httpapi"
	"factored/internal/ingestadapter/kafka"
	"factored/internal/orchestrator"
	"factored/internal/store"
	"factored/internal/store/mongostore"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(os.Getenv("FACT_LOG_LEVEL"))})
	logger := slog.New(baseHandler)

	rootCmd := &cobra.Command{
		Use:   "factored",
		Short: "Fact ingest service",
	}

	rootCmd.PersistentFlags().String("fields", "catalogs/fields.json", "path to the Field Catalog")
	rootCmd.PersistentFlags().String("indexes", "catalogs/indexes.json", "path to the Index Catalog")
	rootCmd.PersistentFlags().String("counters", "catalogs/counters.json", "path to the Counter Catalog")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP (and, if configured, Kafka) ingest front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, _ := cmd.Flags().GetString("fields")
			indexes, _ := cmd.Flags().GetString("indexes")
			counters, _ := cmd.Flags().GetString("counters")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			return serve(ctx, logger, fields, indexes, counters)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate-catalogs",
		Short: "Load and validate the Field, Index, and Counter catalogs without starting the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, _ := cmd.Flags().GetString("fields")
			indexes, _ := cmd.Flags().GetString("indexes")
			counters, _ := cmd.Flags().GetString("counters")

			catalogs, err := loadCatalogs(fields, indexes, counters)
			if err != nil {
				return err
			}
			fmt.Printf("catalogs valid: %d fields, %d indexes, %d counters\n",
				len(catalogs.Fields), len(catalogs.Indexes), len(catalogs.Counters))
			return nil
		},
	}

	probeCmd := &cobra.Command{
		Use:   "probe-schema",
		Short: "Connect to the configured store and print an observed field-type summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			gw, err := connectStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = gw.Close(ctx) }()

			summary, err := gw.ProbeSchema(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("schema sampled at %s\n", summary.SampledAt.Format(time.RFC3339))
			for field, types := range summary.Fields {
				fmt.Printf("  %s: %v\n", field, types)
			}
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(serveCmd, validateCmd, probeCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadCatalogs(fieldsPath, indexesPath, countersPath string) (*catalog.Catalogs, error) {
	fieldsFile, err := os.Open(fieldsPath)
	if err != nil {
		return nil, fmt.Errorf("open field catalog: %w", err)
	}
	defer fieldsFile.Close()

	indexesFile, err := os.Open(indexesPath)
	if err != nil {
		return nil, fmt.Errorf("open index catalog: %w", err)
	}
	defer indexesFile.Close()

	countersFile, err := os.Open(countersPath)
	if err != nil {
		return nil, fmt.Errorf("open counter catalog: %w", err)
	}
	defer countersFile.Close()

	return catalog.Load(fieldsFile, indexesFile, countersFile)
}

func connectStore(ctx context.Context) (*mongostore.Store, error) {
	uri := os.Getenv("FACT_STORE_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	maxPool, _ := strconv.ParseUint(os.Getenv("FACT_STORE_MAX_POOL_SIZE"), 10, 64)

	return mongostore.Connect(ctx, mongostore.Config{
		URI:             uri,
		Database:        envOr("FACT_STORE_DATABASE", "factored"),
		FactCollection:  envOr("FACT_STORE_FACT_COLLECTION", "facts"),
		IndexCollection: envOr("FACT_STORE_INDEX_COLLECTION", "indexEntries"),
		MaxPoolSize:     maxPool,
	})
}

func buildMapper(catalogs *catalog.Catalogs) *fieldmap.Mapper {
	if os.Getenv("FACT_SHORT_NAMES") != "true" {
		return fieldmap.New(nil)
	}
	pairs := make(map[string]string, len(catalogs.Fields))
	for _, f := range catalogs.Fields {
		if f.ShortDst != "" {
			pairs[f.Dst] = f.ShortDst
		}
	}
	return fieldmap.New(pairs)
}

func serve(ctx context.Context, logger *slog.Logger, fieldsPath, indexesPath, countersPath string) error {
	catalogs, err := loadCatalogs(fieldsPath, indexesPath, countersPath)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	logger.Info("catalogs loaded",
		"fields", len(catalogs.Fields), "indexes", len(catalogs.Indexes), "counters", len(catalogs.Counters))

	gw, err := connectStore(ctx)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer func() { _ = gw.Close(context.Background()) }()

	if err := gw.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	gate := buildBackpressureGate(ctx, gw, logger)
	rateGate := buildRateGate()
	mapper := buildMapper(catalogs)
	producer := counter.New(catalogs, mapper, nil)

	orch := orchestrator.New(catalogs, mapper, producer, gw, gate, rateGate)

	if topic := os.Getenv("FACT_KAFKA_TOPIC"); topic != "" {
		go runKafkaConsumer(ctx, logger, orch, topic)
	}

	srv := httpapi.New(httpapi.Config{
		Catalogs:   catalogs,
		Orch:       orch,
		AuthSecret: []byte(os.Getenv("FACT_AUTH_SECRET")),
		Logger:     logger,
	})

	addr := envOr("FACT_HTTP_ADDR", ":8080")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpSrv.Shutdown(shutdownCtx)
}

func buildBackpressureGate(ctx context.Context, gw store.Gateway, logger *slog.Logger) *store.BackpressureGate {
	high, errHigh := strconv.ParseInt(os.Getenv("FACT_STORE_POOL_HIGH_WATER_MARK"), 10, 64)
	low, errLow := strconv.ParseInt(os.Getenv("FACT_STORE_POOL_LOW_WATER_MARK"), 10, 64)
	if errHigh != nil || errLow != nil || high <= low {
		return nil
	}
	gate := store.NewBackpressureGate(high, low, 5*time.Second)
	if _, err := store.StartSampling(ctx, gw, gate, 2*time.Second, logger); err != nil {
		logger.Warn("backpressure sampling disabled", "error", err)
	}
	return gate
}

func buildRateGate() *orchestrator.RateGate {
	rps, err := strconv.ParseFloat(os.Getenv("FACT_RATE_LIMIT_PER_SECOND"), 64)
	if err != nil || rps <= 0 {
		return nil
	}
	burst, _ := strconv.Atoi(os.Getenv("FACT_RATE_LIMIT_BURST"))
	if burst <= 0 {
		burst = int(rps)
	}
	return orchestrator.NewRateGate(rps, burst)
}

func runKafkaConsumer(ctx context.Context, logger *slog.Logger, orch *orchestrator.Orchestrator, topic string) {
	consumer := kafka.New(kafka.Config{
		Brokers: splitCSV(os.Getenv("FACT_KAFKA_BROKERS")),
		Topic:   topic,
		Group:   envOr("FACT_KAFKA_GROUP", "factored"),
		Logger:  logger,
	}, orch)
	if err := consumer.Run(ctx); err != nil {
		logger.Error("kafka consumer stopped", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(raw string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			if i > start {
				out = append(out, raw[start:i])
			}
			start = i + 1
		}
	}
	return out
}
