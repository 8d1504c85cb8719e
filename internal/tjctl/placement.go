package tjctl

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"tjbridge/pkg/types"
)

func groupCmd(use, short, subs string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("%s requires a subcommand: %s", use, subs)
		},
	}
}

func placementCmd(cfg *Config) *cobra.Command {
	root := groupCmd("placement", "Create, request and show placements", "list|create|get|request|show|ready|available|balance|required|entry-point")
	root.AddCommand(getCmd(cfg, "list", "List placements", "/placements"))

	root.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a placement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var st types.PlacementStatus
			if err := cfg.api().Do(cmd.Context(), http.MethodPost, "/placements", types.CreatePlacementRequest{Name: args[0]}, &st); err != nil {
				return err
			}
			return printJSON(st)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Show a placement's state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var st types.PlacementStatus
			if err := cfg.api().Do(cmd.Context(), http.MethodGet, PlacementPath(args[0]), nil, &st); err != nil {
				return err
			}
			return printJSON(st)
		},
	})
	root.AddCommand(operationStart(cfg, "request", "Request content and wait for the outcome"))
	root.AddCommand(operationStart(cfg, "show", "Show content and wait until it is dismissed"))
	for _, q := range []string{"ready", "available"} {
		q := q
		root.AddCommand(&cobra.Command{
			Use:   q + " <name>",
			Short: "Ask whether content is " + q,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return printValue(cfg, cmd, PlacementPath(args[0], q))
			},
		})
	}
	for _, table := range []string{"balance", "required"} {
		segment := table
		if table == "balance" {
			segment = "currency"
		}
		root.AddCommand(&cobra.Command{
			Use:   table + " <name> <currency> [value]",
			Short: "Get or set the placement's " + table + " for a currency",
			Args:  cobra.RangeArgs(2, 3),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := PlacementPath(args[0], segment, args[1])
				if len(args) == 2 {
					return printValue(cfg, cmd, path)
				}
				n, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("%s expects an integer: %q", table, args[2])
				}
				return cfg.api().Do(cmd.Context(), http.MethodPut, path, types.PlacementCurrencyRequest{Amount: n}, nil)
			},
		})
	}
	root.AddCommand(&cobra.Command{
		Use:     "entry-point <name> [value]",
		Short:   "Get or set the placement's entry point",
		Example: "  tjctl placement entry-point level_complete main_menu",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := PlacementPath(args[0], "entry-point")
			if len(args) == 1 {
				return printValue(cfg, cmd, path)
			}
			return cfg.api().Do(cmd.Context(), http.MethodPut, path, types.EntryPointRequest{EntryPoint: args[1]}, nil)
		},
	})
	return root
}

func operationStart(cfg *Config, verb, short string) *cobra.Command {
	var noWait bool
	cmd := &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := PlacementPath(args[0], verb)
			if noWait {
				path += "?wait=false"
			}
			var resp types.OperationResponse
			if err := cfg.api().Do(cmd.Context(), http.MethodPost, path, nil, &resp); err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return the operation id without waiting")
	return cmd
}

func operationCmd(cfg *Config) *cobra.Command {
	root := groupCmd("operation", "Inspect or cancel a pending request or show", "get|cancel")
	root.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a pending operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp types.OperationResponse
			if err := cfg.api().Do(cmd.Context(), http.MethodGet, "/operations/"+args[0], nil, &resp); err != nil {
				return err
			}
			return printJSON(resp)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.api().Do(cmd.Context(), http.MethodDelete, "/operations/"+args[0], nil, nil)
		},
	})
	return root
}

// printValue prints the value field of a GET answer.
func printValue(cfg *Config, cmd *cobra.Command, path string) error {
	var v types.ValueResponse
	if err := cfg.api().Do(cmd.Context(), http.MethodGet, path, nil, &v); err != nil {
		return err
	}
	return printJSON(v.Value)
}
