package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tjbridge/internal/config"
	"tjbridge/internal/httpapi"
)

func main() {
	configPath := flag.String("config", os.Getenv("TJBRIDGE_CONFIG"), "Config file (.yaml, .json or .toml)")
	addr := flag.String("addr", ":8080", "HTTP listen address, e.g. :8080")
	simulate := flag.Bool("simulate", false, "Serve an in-process simulated SDK instead of a native host")
	nativeURL := flag.String("native-url", "", "Base URL of a running native host")
	nativeBin := flag.String("native-bin", "", "Native host binary to spawn")
	sdkKey := flag.String("sdk-key", "", "SDK key used when /connect omits one")
	platform := flag.String("platform", "android", "Platform family: android|ios")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	store := flag.String("keystore", "memory", "Keystore backend: memory|sqlite|redis")
	kafkaBrokers := flag.String("kafka-brokers", "", "Comma separated Kafka brokers for event export")
	corsOrigins := flag.String("cors-origins", "", "Comma separated origins; enables CORS when set")
	flag.Parse()

	var cfg config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(2)
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// Explicit flags win over file and environment; defaults only fill gaps.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	pick := func(name string, dst *string, v string) {
		if set[name] || *dst == "" {
			*dst = v
		}
	}
	pick("addr", &cfg.Addr, *addr)
	pick("native-url", &cfg.NativeURL, *nativeURL)
	pick("native-bin", &cfg.NativeBin, *nativeBin)
	pick("sdk-key", &cfg.SDKKey, *sdkKey)
	pick("platform", &cfg.Platform, *platform)
	pick("log-level", &cfg.LogLevel, *logLevel)
	pick("keystore", &cfg.Keystore, *store)
	pick("kafka-brokers", &cfg.KafkaBrokers, *kafkaBrokers)
	if set["simulate"] {
		cfg.Simulate = *simulate
	}
	if set["cors-origins"] {
		cfg.CORSEnabled = true
		cfg.CORSOrigins = splitCSV(*corsOrigins)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := newDaemon(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	httpapi.SetBaseContext(ctx)
	srv := &http.Server{Addr: cfg.Addr, Handler: d.handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("native", d.nativeDesc).Msg("tjbridged listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()
	d.start(ctx)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	d.Close(shutdownCtx)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Str("service", "tjbridged").Logger()
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
