package tjctl

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tjbridge/pkg/types"
)

func userCmd(cfg *Config) *cobra.Command {
	root := getCmd(cfg, "user", "Show or change the user profile", "/user")
	field := func(name, kind string) *cobra.Command {
		return &cobra.Command{
			Use:   name + " [value]",
			Short: "Get or set the user " + name,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := "/user/" + name
				if len(args) == 0 {
					return printValue(cfg, cmd, path)
				}
				var req types.ValueRequest
				if kind == "int" {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("%s expects an integer: %q", name, args[0])
					}
					req.Int = &n
				} else {
					req.String = &args[0]
				}
				var out types.ValueResponse
				if err := cfg.api().Do(cmd.Context(), http.MethodPut, path, req, &out); err != nil {
					return err
				}
				if out.Value != nil {
					return printJSON(out.Value)
				}
				return nil
			},
		}
	}
	root.AddCommand(field("id", "string"), field("level", "int"), field("max-level", "int"), field("segment", "string"))

	tags := &cobra.Command{
		Use:   "tags",
		Short: "List the user tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printValue(cfg, cmd, "/user/tags")
		},
	}
	tags.AddCommand(
		&cobra.Command{
			Use:   "set <a,b,...>",
			Short: "Replace every tag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				list := splitList(args[0])
				return cfg.api().Do(cmd.Context(), http.MethodPut, "/user/tags", types.ValueRequest{List: list}, nil)
			},
		},
		&cobra.Command{
			Use:   "add <tag>",
			Short: "Add one tag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cfg.api().Do(cmd.Context(), http.MethodPost, "/user/tags/"+url.PathEscape(args[0]), nil, nil)
			},
		},
		&cobra.Command{
			Use:   "remove <tag>",
			Short: "Remove one tag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cfg.api().Do(cmd.Context(), http.MethodDelete, "/user/tags/"+url.PathEscape(args[0]), nil, nil)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every tag",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return cfg.api().Do(cmd.Context(), http.MethodDelete, "/user/tags", nil, nil)
			},
		},
	)
	root.AddCommand(tags)
	return root
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func privacyCmd(cfg *Config) *cobra.Command {
	root := getCmd(cfg, "privacy", "Show or change consent flags", "/privacy")
	root.AddCommand(&cobra.Command{
		Use:   "get <flag>",
		Short: "Read one flag (subject-to-gdpr|user-consent|below-consent-age|us-privacy|opt-out-advertising-id)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printValue(cfg, cmd, "/privacy/"+url.PathEscape(args[0]))
		},
	})
	root.AddCommand(&cobra.Command{
		Use:     "set <flag> <value>",
		Short:   "Set one flag; tri-state flags take true|false|unknown",
		Example: "  tjctl privacy set user-consent true\n  tjctl privacy set us-privacy 1YNN",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req types.ValueRequest
			if args[0] == "opt-out-advertising-id" {
				b, err := parseBool(args[1])
				if err != nil {
					return fmt.Errorf("%s expects a boolean: %q", args[0], args[1])
				}
				req.Bool = &b
			} else {
				req.String = &args[1]
			}
			return cfg.api().Do(cmd.Context(), http.MethodPut, "/privacy/"+url.PathEscape(args[0]), req, nil)
		},
	})
	return root
}
