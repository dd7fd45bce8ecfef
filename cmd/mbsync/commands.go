package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mb-route-sync/imposter"
	"mb-route-sync/routes"
	"mb-route-sync/synchronizer"
)

type inspectOutput struct {
	Imposter string                                  `yaml:"imposter"`
	Routes   map[string]map[string]routes.RouteEntry `yaml:"routes"`
}

func parsePorts(args []string) ([]int, error) {
	ports := make([]int, 0, len(args))
	for _, arg := range args {
		port, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", arg, err)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

func newWaitCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the Mountebank admin API answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fw, err := a.framework()
			if err != nil {
				return err
			}
			if err := fw.MountebankClient.WaitForMountebank(cmd.Context(), timeout); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ready")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create [port...]",
		Short: "Create the configured imposters (all of them when no port is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := parsePorts(args)
			if err != nil {
				return err
			}
			fw, err := a.framework()
			if err != nil {
				return err
			}
			if err := fw.CreateAll(cmd.Context(), ports...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created")
			return nil
		},
	}
}

// routeFlags are shared by the update subcommands.
type routeFlags struct {
	port   int
	path   string
	method string
}

func (f *routeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.port, "port", 0, "Imposter port")
	cmd.Flags().StringVar(&f.path, "path", "", "Route path")
	cmd.Flags().StringVar(&f.method, "method", "GET", "Route method")
	_ = cmd.MarkFlagRequired("port")
	_ = cmd.MarkFlagRequired("path")
}

// parseHeaders reads "Name: value" pairs. An empty list clears all headers.
func parseHeaders(args []string) (map[string]string, error) {
	headers := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, want \"Name: value\"", arg)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}

// update loads the imposter on port, applies fn and saves the local state.
// The state is saved even when the push fails so a later create publishes
// the change.
func (a *app) update(cmd *cobra.Command, port int, fn func(imp *imposter.Imposter) ([]byte, error)) error {
	fw, err := a.framework()
	if err != nil {
		return err
	}
	imp, err := fw.LoadImposter(cmd.Context(), port)
	if err != nil {
		return err
	}

	_, pushErr := fn(imp)
	if pushErr != nil && !errors.Is(pushErr, synchronizer.ErrRemote) && !errors.Is(pushErr, synchronizer.ErrStaleDelete) {
		return pushErr
	}
	if err := fw.SaveImposter(cmd.Context(), imp); err != nil {
		return err
	}
	if errors.Is(pushErr, synchronizer.ErrStaleDelete) {
		return fmt.Errorf("%w; run \"mbsync create %d\" to publish it", pushErr, port)
	}
	if pushErr != nil {
		return pushErr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", imp.Descriptor())
	return nil
}

func newUpdateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change one field of a route and replace the remote imposter",
	}

	var status routeFlags
	statusCmd := &cobra.Command{
		Use:   "status <code>",
		Short: "Change a route's status code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid status code %q: %w", args[0], err)
			}
			return a.update(cmd, status.port, func(imp *imposter.Imposter) ([]byte, error) {
				return imp.UpdateStatusCode(cmd.Context(), status.path, status.method, code)
			})
		},
	}
	status.register(statusCmd)

	var headers routeFlags
	headersCmd := &cobra.Command{
		Use:   "headers [\"Name: value\"...]",
		Short: "Replace a route's headers",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseHeaders(args)
			if err != nil {
				return err
			}
			return a.update(cmd, headers.port, func(imp *imposter.Imposter) ([]byte, error) {
				return imp.UpdateHeaders(cmd.Context(), headers.path, headers.method, h)
			})
		},
	}
	headers.register(headersCmd)

	var body routeFlags
	bodyCmd := &cobra.Command{
		Use:   "body <body>",
		Short: "Change a route's body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.update(cmd, body.port, func(imp *imposter.Imposter) ([]byte, error) {
				return imp.UpdateBody(cmd.Context(), body.path, body.method, args[0])
			})
		},
	}
	body.register(bodyCmd)

	cmd.AddCommand(statusCmd, headersCmd, bodyCmd)
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "inspect <port>",
		Short: "Print the local route table of an imposter as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := parsePorts(args)
			if err != nil {
				return err
			}
			fw, err := a.framework()
			if err != nil {
				return err
			}

			var out interface{}
			if remote {
				out, err = fw.MountebankClient.GetImposter(cmd.Context(), ports[0])
			} else {
				imp, loadErr := fw.LoadImposter(cmd.Context(), ports[0])
				err = loadErr
				if err == nil {
					out = inspectOutput{Imposter: imp.Descriptor().String(), Routes: imp.Inspect()}
				}
			}
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to encode output: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Show what Mountebank currently serves instead of the local table")
	return cmd
}

func newDeleteRequestsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-requests <port>",
		Short: "Delete the requests Mountebank recorded for an imposter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := parsePorts(args)
			if err != nil {
				return err
			}
			fw, err := a.framework()
			if err != nil {
				return err
			}
			if err := fw.MountebankClient.DeleteRequests(cmd.Context(), ports[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}

func newEventsCmd(a *app) *cobra.Command {
	var (
		count         int
		fromBeginning bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print imposter sync events published to Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fw, err := a.framework()
			if err != nil {
				return err
			}
			c, err := fw.NewEventConsumer(fromBeginning)
			if err != nil {
				return err
			}
			defer c.Close()

			for n := 0; count <= 0 || n < count; n++ {
				event, err := c.Next(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-7s port=%d stubs=%d took=%dms id=%s\n",
					event.At.Format(time.RFC3339), event.Operation, event.Port, event.StubCount, event.DurationMs, event.ID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many events (0 means follow forever)")
	cmd.Flags().BoolVar(&fromBeginning, "from-beginning", false, "Start from the oldest event when the consumer group is new")
	return cmd
}
