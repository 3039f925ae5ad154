package main

import (
	"fmt"
	"os"

	"github.com/twistedxcom/paneterm/internal/config"
	"github.com/twistedxcom/paneterm/internal/logging"
)

const Version = "0.3.1"

func main() {
	args := os.Args[1:]

	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Printf("paneterm v%s\n", Version)
			return
		case "help", "--help", "-h":
			printHelp()
			return
		case "attach":
			runAttach(args[1:])
			return
		case "history":
			handleHistory(args[1:])
			return
		case "status":
			handleStatus(args[1:])
			return
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n", args[0])
			printHelp()
			os.Exit(1)
		}
	}

	// Bare invocation attaches a shell in the current directory.
	runAttach(nil)
}

func printHelp() {
	fmt.Println("Usage: paneterm [command] [options]")
	fmt.Println()
	fmt.Println("Pane shell supervisor with a searchable transcript archive.")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  attach [--pane N] [--dir PATH]   Run a shell in a pane slot (default)")
	fmt.Println("  history <list|show|search|delete>  Browse the transcript archive")
	fmt.Println("  status                           Show repo state and archive paths")
	fmt.Println("  version                          Print version")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  paneterm                          # shell here, transcripts recorded")
	fmt.Println("  paneterm history list             # archived days for this project")
	fmt.Println("  paneterm history search \"make test\"")
	fmt.Println("  paneterm history show 2026-08-22")
}

// initLogging configures the global logger from config plus the
// PANETERM_DEBUG escape hatch. Logs always go to a file, never the
// terminal, so they cannot corrupt raw pty output.
func initLogging(cfg *config.UserConfig) {
	debugMode := os.Getenv("PANETERM_DEBUG") != ""

	logCfg := logging.Config{
		Debug:      debugMode,
		Level:      "info",
		Format:     "json",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 14,
		Compress:   true,
	}
	if dir, err := config.PanetermDir(); err == nil {
		logCfg.LogDir = dir
	}

	if cfg != nil {
		if cfg.Log.Level != "" {
			logCfg.Level = cfg.Log.Level
		}
		if cfg.Log.Format != "" {
			logCfg.Format = cfg.Log.Format
		}
		if cfg.Log.Debug {
			logCfg.Debug = true
		}
	}
	if debugMode {
		logCfg.Level = "debug"
	}

	logging.Init(logCfg)
}
