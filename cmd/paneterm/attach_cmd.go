package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/twistedxcom/paneterm/internal/config"
	"github.com/twistedxcom/paneterm/internal/core"
	"github.com/twistedxcom/paneterm/internal/logging"
)

// attachSubscriber relays one pane's output to the local terminal and
// signals its exit.
type attachSubscriber struct {
	paneID int
	out    io.Writer
	exit   chan int
}

func (a *attachSubscriber) PaneOutput(paneID int, data []byte) {
	if paneID != a.paneID {
		return
	}
	_, _ = a.out.Write(data)
}

func (a *attachSubscriber) PaneExit(paneID, exitCode int) {
	if paneID != a.paneID {
		return
	}
	select {
	case a.exit <- exitCode:
	default:
	}
}

// runAttach runs an interactive shell in a pane slot, recording its
// transcript, until the shell exits or the process is signalled.
func runAttach(args []string) {
	fs := flag.NewFlagSet("attach", flag.ExitOnError)
	paneID := fs.Int("pane", 0, "pane slot (0-3)")
	dir := fs.String("dir", "", "working directory for the shell (default: current)")
	shell := fs.String("shell", "", "shell executable (default: config, then $SHELL)")
	debug := fs.Bool("debug", false, "debug logging")

	fs.Usage = func() {
		fmt.Println("Usage: paneterm attach [options]")
		fmt.Println()
		fmt.Println("Run a shell in a pane slot with transcript recording.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *debug {
		os.Setenv("PANETERM_DEBUG", "1")
	}

	cfg, cfgErr := config.Load()
	initLogging(cfg)
	defer logging.Shutdown()
	log := logging.ForComponent(logging.CompCLI)
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", cfgErr)
	}

	historyDir, err := config.HistoryDir()
	if err != nil {
		fatalf("cannot determine history directory: %v", err)
	}

	cwd := *dir
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			fatalf("cannot determine working directory: %v", err)
		}
	}

	shellProgram := *shell
	if shellProgram == "" {
		shellProgram = cfg.Shell.Program
	}

	c := core.New(core.Options{
		Shell:                shellProgram,
		HistoryDir:           historyDir,
		OutputFlushInterval:  time.Duration(cfg.History.GetOutputFlushSecs()) * time.Second,
		HistoryFlushInterval: time.Duration(cfg.History.GetHistoryFlushSecs()) * time.Second,
		SessionGap:           time.Duration(cfg.History.GetSessionGapMins()) * time.Minute,
	})
	defer c.Shutdown()

	sub := &attachSubscriber{paneID: *paneID, out: os.Stdout, exit: make(chan int, 1)}
	unsubscribe := c.Subscribe(sub)
	defer unsubscribe()

	if !c.CreatePane(*paneID, cwd) {
		fatalf("failed to start shell in pane %d", *paneID)
	}

	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		oldState, err := term.MakeRaw(stdinFd)
		if err != nil {
			fatalf("cannot enter raw mode: %v", err)
		}
		defer term.Restore(stdinFd, oldState)

		syncSize := func() {
			if cols, rows, err := term.GetSize(stdinFd); err == nil {
				c.Resize(*paneID, cols, rows)
			}
		}
		syncSize()

		winch := make(chan os.Signal, 1)
		signal.Notify(winch, syscall.SIGWINCH)
		defer signal.Stop(winch)
		go func() {
			for range winch {
				syncSize()
			}
		}()
	}

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				c.Write(*paneID, buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case code := <-sub.exit:
		log.Info("attach_shell_exited", slog.Int("pane", *paneID), slog.Int("code", code))
	case sig := <-sigCh:
		log.Info("attach_interrupted", slog.String("signal", sig.String()))
	}
	// Deferred Shutdown drains buffered output into the archive.
}
