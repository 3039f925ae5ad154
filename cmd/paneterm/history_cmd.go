package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/twistedxcom/paneterm/internal/config"
	"github.com/twistedxcom/paneterm/internal/logging"
)

// handleHistory dispatches history subcommands.
func handleHistory(args []string) {
	if len(args) == 0 {
		printHistoryHelp()
		os.Exit(1)
	}

	cfg, _ := config.Load()
	initLogging(cfg)
	defer logging.Shutdown()

	switch args[0] {
	case "list", "ls":
		handleHistoryList(cfg, args[1:])
	case "show":
		handleHistoryShow(cfg, args[1:])
	case "search":
		handleHistorySearch(cfg, args[1:])
	case "delete", "rm":
		handleHistoryDelete(cfg, args[1:])
	case "help", "--help", "-h":
		printHistoryHelp()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown history command: %s\n", args[0])
		printHistoryHelp()
		os.Exit(1)
	}
}

func printHistoryHelp() {
	fmt.Println("Usage: paneterm history <command> [options]")
	fmt.Println()
	fmt.Println("Browse a project's transcript archive.")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  list                    Archived days with previews")
	fmt.Println("  show <date>             Print one day's transcript")
	fmt.Println("  search <query>          Substring search, newest first")
	fmt.Println("  delete <date>           Remove one day's transcript")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --project <path>        Project directory (default: current)")
	fmt.Println("  --json                  Output as JSON")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  paneterm history list")
	fmt.Println("  paneterm history show 2026-08-22")
	fmt.Println("  paneterm history search \"make test\" --limit 10")
	fmt.Println("  paneterm history delete 2026-08-01")
}

func handleHistoryList(cfg *config.UserConfig, args []string) {
	fs := flag.NewFlagSet("history list", flag.ExitOnError)
	project := fs.String("project", "", "project directory")
	jsonOutput := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	st := openStore(cfg)
	id := resolveProjectArg(st, *project)
	sessions := st.Sessions(id)

	if *jsonOutput {
		emitJSON(sessions)
		return
	}

	if len(sessions) == 0 {
		fmt.Println("No archived transcripts for this project.")
		return
	}
	for _, s := range sessions {
		fmt.Printf("%s  %4d exchanges  %6.1f KB  %s\n",
			s.Date, s.ExchangeCount, float64(s.Size)/1024, s.Preview)
	}
}

func handleHistoryShow(cfg *config.UserConfig, args []string) {
	fs := flag.NewFlagSet("history show", flag.ExitOnError)
	project := fs.String("project", "", "project directory")
	jsonOutput := fs.Bool("json", false, "output exchanges as JSON")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	date := fs.Arg(0)
	if date == "" {
		fatalf("usage: paneterm history show <date>")
	}

	st := openStore(cfg)
	id := resolveProjectArg(st, *project)

	if *jsonOutput {
		emitJSON(st.DayExchanges(id, date))
		return
	}

	content := st.DayContent(id, date)
	if content == "" {
		fatalf("no transcript for %s", date)
	}
	fmt.Print(content)
}

func handleHistorySearch(cfg *config.UserConfig, args []string) {
	fs := flag.NewFlagSet("history search", flag.ExitOnError)
	project := fs.String("project", "", "project directory")
	jsonOutput := fs.Bool("json", false, "output as JSON")
	limit := fs.Int("limit", 0, "maximum matches (default from config)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	query := fs.Arg(0)
	if query == "" {
		fatalf("usage: paneterm history search <query>")
	}

	st := openStore(cfg)
	id := resolveProjectArg(st, *project)

	budget := *limit
	if budget <= 0 {
		budget = cfg.History.GetSearchLimit()
	}
	matches := st.Search(id, query, budget)

	if *jsonOutput {
		emitJSON(matches)
		return
	}

	if len(matches) == 0 {
		fmt.Printf("No matches for %q.\n", query)
		return
	}
	for _, m := range matches {
		fmt.Printf("--- %s:%d ---\n%s\n\n", m.Date, m.Line, m.Context)
	}
}

func handleHistoryDelete(cfg *config.UserConfig, args []string) {
	fs := flag.NewFlagSet("history delete", flag.ExitOnError)
	project := fs.String("project", "", "project directory")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	date := fs.Arg(0)
	if date == "" {
		fatalf("usage: paneterm history delete <date>")
	}

	st := openStore(cfg)
	id := resolveProjectArg(st, *project)

	if !st.DeleteDay(id, date) {
		fatalf("no transcript for %s", date)
	}
	fmt.Printf("Deleted transcript for %s.\n", date)
}
