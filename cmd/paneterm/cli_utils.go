package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/twistedxcom/paneterm/internal/config"
	"github.com/twistedxcom/paneterm/internal/history"
)

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// emitJSON prints v as indented JSON on stdout.
func emitJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("encoding output: %v", err)
	}
	fmt.Println(string(data))
}

// openStore builds a history store from the user configuration.
func openStore(cfg *config.UserConfig) *history.Store {
	dir, err := config.HistoryDir()
	if err != nil {
		fatalf("cannot determine history directory: %v", err)
	}
	gap := time.Duration(cfg.History.GetSessionGapMins()) * time.Minute
	return history.NewStore(dir, gap)
}

// resolveProjectArg maps a --project path (or the current directory) to a
// project id, refusing to operate on ephemeral ids since nothing is ever
// archived under them.
func resolveProjectArg(st *history.Store, path string) string {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fatalf("cannot determine working directory: %v", err)
		}
		path = cwd
	}

	id := st.ProjectID(path)
	if history.IsEphemeral(id) {
		fatalf("no project identity could be established for %s", path)
	}
	return id
}
