package main

import (
	"github.com/spf13/cobra"

	"mb-route-sync/framework"
)

// app carries the global flags and lazily loads the framework.
type app struct {
	configPath string
	fw         *framework.Framework
}

func (a *app) framework() (*framework.Framework, error) {
	if a.fw != nil {
		return a.fw, nil
	}
	fw, err := framework.NewFramework(a.configPath)
	if err != nil {
		return nil, err
	}
	a.fw = fw
	return fw, nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "mbsync",
		Short: "mbsync pushes route tables to Mountebank imposters",
		Long: `mbsync keeps a local model of HTTP route stubs and pushes it to a
Mountebank server. Mountebank has no update operation, so every change is
applied by deleting the imposter and creating it again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.fw != nil {
				return a.fw.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "Path to the config file")

	root.AddCommand(
		newWaitCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newInspectCmd(a),
		newDeleteRequestsCmd(a),
		newEventsCmd(a),
	)
	return root
}
