// Command tjsim serves the native host wire protocol over a simulated SDK.
// tjbridged can spawn it with -native-bin; it accepts --host and --port.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tjbridge/internal/simhost"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("tjsim", flag.ContinueOnError)
	host := fs.String("host", "127.0.0.1", "Listen host")
	port := fs.Int("port", 0, "Listen port (0 picks one)")
	currency := fs.String("currency", "", "Managed currency name")
	balance := fs.Int("balance", 0, "Initial currency balance")
	delay := fs.Duration("event-delay", 0, "Delay before lifecycle events")
	show := fs.Duration("show-duration", 0, "How long a shown placement stays up")
	noFill := fs.String("no-fill", "", "Comma separated placements that fail requests")
	noContent := fs.String("no-content", "", "Comma separated placements that succeed without content")
	warning := fs.String("connect-warning", "", "Warning emitted after every connect")
	logLevel := fs.String("log-level", "info", "Log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Str("service", "tjsim").Logger()

	srv, err := simhost.Listen(net.JoinHostPort(*host, strconv.Itoa(*port)), simhost.Options{
		CurrencyName:   *currency,
		InitialBalance: *balance,
		EventDelay:     *delay,
		ShowDuration:   *show,
		NoFill:         splitCSV(*noFill),
		NoContent:      splitCSV(*noContent),
		ConnectWarning: *warning,
		Logger:         &logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	srv.Start()
	logger.Info().Str("url", srv.URL()).Msg("simulated native host listening")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("shutdown")
	}
	return 0
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
