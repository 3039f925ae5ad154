package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/twistedxcom/paneterm/internal/config"
	"github.com/twistedxcom/paneterm/internal/history"
	"github.com/twistedxcom/paneterm/internal/logging"
	"github.com/twistedxcom/paneterm/internal/vcs"
)

// statusReport is the JSON shape of the status command.
type statusReport struct {
	Directory  string      `json:"directory"`
	ProjectID  string      `json:"project_id,omitempty"`
	Ephemeral  bool        `json:"ephemeral,omitempty"`
	Days       int         `json:"archived_days"`
	HistoryDir string      `json:"history_dir"`
	Git        *vcs.Status `json:"git"`
}

// handleStatus reports the current directory's repository state and its
// standing in the transcript archive.
func handleStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	dir := fs.String("dir", "", "directory to inspect (default: current)")
	jsonOutput := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, _ := config.Load()
	initLogging(cfg)
	defer logging.Shutdown()

	target := *dir
	if target == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fatalf("cannot determine working directory: %v", err)
		}
		target = cwd
	}

	historyDir, err := config.HistoryDir()
	if err != nil {
		fatalf("cannot determine history directory: %v", err)
	}

	st := openStore(cfg)
	id := st.ProjectID(target)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	report := statusReport{
		Directory:  target,
		HistoryDir: historyDir,
		Git:        vcs.Probe(ctx, target),
	}
	if history.IsEphemeral(id) {
		report.Ephemeral = true
	} else {
		report.ProjectID = id
		report.Days = len(st.Sessions(id))
	}

	if *jsonOutput {
		emitJSON(report)
		return
	}

	fmt.Printf("Directory:  %s\n", report.Directory)
	if report.Ephemeral {
		fmt.Println("Project:    (ephemeral, not archived)")
	} else {
		fmt.Printf("Project:    %s (%d archived days)\n", report.ProjectID, report.Days)
	}
	fmt.Printf("Archive:    %s\n", report.HistoryDir)

	g := report.Git
	if !g.IsGitRepo {
		fmt.Println("Git:        not a repository")
		return
	}
	fmt.Printf("Git:        %s", g.Branch)
	if g.Ahead > 0 {
		fmt.Printf(" ↑%d", g.Ahead)
	}
	if g.Behind > 0 {
		fmt.Printf(" ↓%d", g.Behind)
	}
	if g.Dirty > 0 {
		fmt.Printf(" +%d dirty", g.Dirty)
	}
	fmt.Println()
}
