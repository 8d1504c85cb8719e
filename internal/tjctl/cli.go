// Package tjctl is the command line client for tjbridged.
package tjctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Config carries the persistent flags.
type Config struct {
	Addr    string
	LogLvl  string
	Timeout time.Duration
}

// DefaultConfig reads TJCTL_ADDR, TJCTL_LOG_LEVEL and TJCTL_TIMEOUT.
func DefaultConfig() *Config {
	return &Config{
		Addr:    envStr("TJCTL_ADDR", "http://127.0.0.1:8080"),
		LogLvl:  envStr("TJCTL_LOG_LEVEL", "info"),
		Timeout: envDuration("TJCTL_TIMEOUT", 6*time.Minute),
	}
}

func (c *Config) api() *API { return NewAPI(c.Addr, c.Timeout) }

func usage() {
	fmt.Fprintln(stdout, "Usage: tjctl [--addr URL] [--log-level info] [--timeout 6m] <command>")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Commands:")
	fmt.Fprintln(stdout, "  connect [--sdk-key K] [--user-id U] [--flag k=v]")
	fmt.Fprintln(stdout, "  status | wait | events [--placement P]")
	fmt.Fprintln(stdout, "  balance | spend <amount> | award <amount> | purchase <currency> <price>")
	fmt.Fprintln(stdout, "  debug on|off")
	fmt.Fprintln(stdout, "  placement list|create|get|request|show|ready|available <name>")
	fmt.Fprintln(stdout, "  placement balance|required <name> <currency> [value]")
	fmt.Fprintln(stdout, "  placement entry-point <name> [value]")
	fmt.Fprintln(stdout, "  operation get|cancel <id>")
	fmt.Fprintln(stdout, "  user [id|level|max-level|segment [value]]")
	fmt.Fprintln(stdout, "  user tags [set a,b|add t|remove t|clear]")
	fmt.Fprintln(stdout, "  privacy [get <flag>|set <flag> <value>]")
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// MainWithArgs runs the CLI and returns an exit code: 0 on success, 2 for
// missing arguments, 1 for any failure.
func MainWithArgs(args []string) int {
	for _, a := range args {
		if a == "-h" || a == "--help" || a == "help" {
			usage()
			return 0
		}
	}
	if len(args) == 0 {
		usage()
		return 2
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := buildRootCmdWith(DefaultConfig())
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		var ae *APIError
		if errors.As(err, &ae) {
			log.Error().Int("status", ae.Status).Msg(ae.Message)
		} else {
			fmt.Fprintln(stderr, err.Error())
		}
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/tjctl.
func Main() int { return MainWithArgs(os.Args[1:]) }
