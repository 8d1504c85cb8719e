package tjctl

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tjbridge/internal/bridge"
	"tjbridge/pkg/types"
)

// buildRootCmdWith constructs the command tree; persistent flags write
// into cfg before any command runs.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "tjctl",
		Short:         "Drive a tjbridged daemon from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.Addr, "addr", cfg.Addr, "Daemon base URL (defaults TJCTL_ADDR)")
	root.PersistentFlags().StringVar(&cfg.LogLvl, "log-level", cfg.LogLvl, "Log level: debug|info|warn|error")
	root.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) { SetLogLevel(cfg.LogLvl) }

	root.AddCommand(
		connectCmd(cfg),
		statusCmd(cfg),
		waitCmd(cfg),
		eventsCmd(cfg),
		debugCmd(cfg),
	)
	root.AddCommand(currencyCmds(cfg)...)
	root.AddCommand(placementCmd(cfg), operationCmd(cfg), userCmd(cfg), privacyCmd(cfg))
	return root
}

func connectCmd(cfg *Config) *cobra.Command {
	var sdkKey, userID string
	var flags []string
	cmd := &cobra.Command{
		Use:     "connect",
		Short:   "Connect the SDK (falls back to the daemon's stored key and user id)",
		Example: "  tjctl connect --sdk-key KEY --user-id player-42 --flag TJC_OPTION_LOGGING_LEVEL=debug",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.ConnectRequest{SDKKey: sdkKey, UserID: userID}
			if len(flags) > 0 {
				req.Flags = map[string]any{}
				for _, kv := range flags {
					k, v, ok := strings.Cut(kv, "=")
					if !ok || k == "" {
						return fmt.Errorf("flag must be key=value: %q", kv)
					}
					req.Flags[k] = v
				}
			}
			var resp types.ConnectResponse
			if err := cfg.api().Do(cmd.Context(), http.MethodPost, "/connect", req, &resp); err != nil {
				return err
			}
			if resp.Warning != "" {
				log.Warn().Str("warning", resp.Warning).Msg("connected with warning")
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().StringVar(&sdkKey, "sdk-key", "", "SDK key")
	cmd.Flags().StringVar(&userID, "user-id", "", "User id")
	cmd.Flags().StringArrayVar(&flags, "flag", nil, "Connect flag key=value (repeatable)")
	return cmd
}

// getCmd prints the JSON answer of GET path.
func getCmd(cfg *Config, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := cfg.api().Do(cmd.Context(), http.MethodGet, path, nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func statusCmd(cfg *Config) *cobra.Command {
	return getCmd(cfg, "status", "Show connection, subscriptions and placements", "/status")
}

func waitCmd(cfg *Config) *cobra.Command {
	var within time.Duration
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the daemon reports ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fnWaitHTTP(cmd.Context(), strings.TrimRight(cfg.Addr, "/")+"/readyz", http.StatusOK, within); err != nil {
				return err
			}
			log.Info().Str("addr", cfg.Addr).Msg("daemon ready")
			return nil
		},
	}
	cmd.Flags().DurationVar(&within, "within", 30*time.Second, "Give up after this long")
	return cmd
}

func eventsCmd(cfg *Config) *cobra.Command {
	var placement string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream bridge events as JSON lines until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.api().Stream(cmd.Context(), placement, stdout)
		},
	}
	cmd.Flags().StringVar(&placement, "placement", "", "Only events of this placement")
	return cmd
}

func debugCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:       "debug on|off",
		Short:     "Toggle SDK debug logging",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseBool(args[0])
			if err != nil {
				return fmt.Errorf("debug expects on or off: %q", args[0])
			}
			return cfg.api().Do(cmd.Context(), http.MethodPut, "/debug", types.ValueRequest{Bool: &on}, nil)
		},
	}
}

func currencyCmds(cfg *Config) []*cobra.Command {
	balance := getCmd(cfg, "balance", "Show the currency balance", "/currency")
	amountCmd := func(use, short, path string) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <amount>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := bridge.ParseAmount(args[0])
				if err != nil {
					return err
				}
				var bal types.CurrencyBalance
				if err := cfg.api().Do(cmd.Context(), http.MethodPost, path, types.AmountRequest{Amount: amount}, &bal); err != nil {
					return err
				}
				return printJSON(bal)
			},
		}
	}
	purchase := &cobra.Command{
		Use:     "purchase <currency> <price>",
		Short:   "Track an in-app purchase",
		Example: "  tjctl purchase USD 0.99",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := bridge.ParseAmount(args[1])
			if err != nil {
				return err
			}
			return cfg.api().Do(cmd.Context(), http.MethodPost, "/purchases", types.PurchaseRequest{CurrencyCode: args[0], Price: price}, nil)
		},
	}
	return []*cobra.Command{
		balance,
		amountCmd("spend", "Spend currency", "/currency/spend"),
		amountCmd("award", "Award currency", "/currency/award"),
		purchase,
	}
}
