package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/roadmap/internal/completion"
	"github.com/hpungsan/roadmap/internal/config"
	"github.com/hpungsan/roadmap/internal/logger"
	"github.com/hpungsan/roadmap/internal/prompt"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isMCPMode reports whether to serve MCP on stdio: no arguments and piped stdin.
func isMCPMode() bool {
	return len(os.Args) < 2 && !isTerminal()
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   roadmap

  Personalised study roadmaps, reviewed by parents and teachers

  Usage: roadmap <command> [options]
         roadmap serve
         roadmap --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before loading config
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load .env: %v\n", err)
		os.Exit(1)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".roadmap")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	env := &appEnv{
		cfg:     cfg,
		log:     log,
		baseDir: baseDir,
		clients: func(v prompt.Variant) (completion.Client, error) {
			return completion.New(cfg, v, log)
		},
	}

	args := os.Args
	if isMCPMode() {
		args = []string{args[0], "mcp"}
	}

	app := newCLIApp(env)
	if err := app.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		log.Sync()
		os.Exit(1)
	}
}
