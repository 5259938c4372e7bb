package main

import (
	"fmt"
	"os"

	"project-tracker/internal/cli"
	"project-tracker/internal/config"
	"project-tracker/internal/logging"
)

func main() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Debugf("environment: %s\n", parseEnvironment(cfg.Application.Env))

	app := cli.NewApp(cfg, openBackend)
	if err := cli.NewRootCommand(app).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
