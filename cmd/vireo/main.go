package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vireo/config"
	"vireo/server"
)

const defaultConfigPath = "./vireo.conf"

func main() {
	root := &cobra.Command{
		Use:   "vireo [config]",
		Short: "Configuration-driven static file server and reverse proxy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) > 0 {
				path = args[0]
			}
			return run(path)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	state, err := server.New(cfg)
	if err != nil {
		return err
	}

	return state.Run()
}
