package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/linzh0131/find/internal/config"
	"github.com/linzh0131/find/internal/tui"
)

var version = "dev"

func main() {
	// Local secrets for ${VAR} expansion in the config file.
	_ = godotenv.Load()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			if err := runServe(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "ask":
			if err := runAsk(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println("find " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	// No subcommand → launch TUI
	cfg, err := config.Load(config.GetEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := tui.Run(cfg.Client); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `find - voice and text place finder

Usage:
  find                Launch interactive TUI
  find ask [flags]    Run one query headless and print ranked results
  find serve [flags]  Run the backend API server
  find version        Show version

Run 'find ask --help' or 'find serve --help' for flags.
`)
}
