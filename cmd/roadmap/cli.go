package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/roadmap/internal/completion"
	"github.com/hpungsan/roadmap/internal/config"
	"github.com/hpungsan/roadmap/internal/errors"
	"github.com/hpungsan/roadmap/internal/logger"
	"github.com/hpungsan/roadmap/internal/mcp"
	"github.com/hpungsan/roadmap/internal/profile"
	"github.com/hpungsan/roadmap/internal/prompt"
	"github.com/hpungsan/roadmap/internal/roadmap"
	"github.com/hpungsan/roadmap/internal/session"
	"github.com/hpungsan/roadmap/internal/web"
)

// maxStdinBytes bounds the roadmap text read from stdin.
const maxStdinBytes = 1 << 20

// appEnv carries what commands need at run time.
type appEnv struct {
	cfg     *config.Config
	log     *logger.Logger
	baseDir string
	// clients builds the completion client for a variant.
	clients roadmap.ClientFactory
}

// services returns the per-variant services; dryRun swaps the model for an echo.
func (e *appEnv) services(dryRun bool) *roadmap.Services {
	if dryRun {
		return roadmap.NewServices(func(prompt.Variant) (completion.Client, error) {
			return completion.Echo(), nil
		}, e.log)
	}
	return roadmap.NewServices(e.clients, e.log)
}

// variant resolves the --variant flag against the configured default.
func (e *appEnv) variant(c *cli.Context) (prompt.Variant, error) {
	name := c.String("variant")
	if name == "" {
		name = e.cfg.Variant
	}
	return prompt.ParseVariant(name)
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "roadmap",
		Usage:   "Study roadmaps generated by a language model and reviewed by parents or teachers",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(env),
			generateCmd(env),
			regenerateCmd(env),
			promptCmd(env),
			mcpCmd(env),
			sessionsCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// variantFlag selects the prompt template.
func variantFlag() cli.Flag {
	return &cli.StringFlag{Name: "variant", Usage: "Prompt variant: jee|percentile|swot (default from config)"}
}

// dryRunFlag skips the model and prints the prompt instead.
func dryRunFlag() cli.Flag {
	return &cli.BoolFlag{Name: "dry-run", Usage: "Do not call the model; echo the prompt"}
}

// profileFlags mirror the student form, with the same defaults.
func profileFlags() []cli.Flag {
	d := profile.Default()
	return []cli.Flag{
		&cli.IntFlag{Name: "months", Aliases: []string{"m"}, Value: d.MonthsRemaining, Usage: "Months remaining (1-24)"},
		&cli.IntFlag{Name: "physics-marks", Value: d.PhysicsMarks, Usage: "Physics marks (0-100)"},
		&cli.IntFlag{Name: "chemistry-marks", Value: d.ChemistryMarks, Usage: "Chemistry marks (0-100)"},
		&cli.IntFlag{Name: "math-marks", Value: d.MathMarks, Usage: "Mathematics marks (0-100)"},
		&cli.IntFlag{Name: "physics-syllabus", Value: d.PhysicsSyllabus, Usage: "Physics syllabus completion % (0-100)"},
		&cli.IntFlag{Name: "chemistry-syllabus", Value: d.ChemistrySyllabus, Usage: "Chemistry syllabus completion % (0-100)"},
		&cli.IntFlag{Name: "math-syllabus", Value: d.MathSyllabus, Usage: "Mathematics syllabus completion % (0-100)"},
		&cli.IntFlag{Name: "target-percentile", Usage: "Target percentile (optional)"},
		&cli.StringFlag{Name: "habits", Usage: "Current study habits"},
		&cli.StringFlag{Name: "strengths", Usage: "SWOT: strengths"},
		&cli.StringFlag{Name: "weaknesses", Usage: "SWOT: weaknesses"},
		&cli.StringFlag{Name: "opportunities", Usage: "SWOT: opportunities"},
		&cli.StringFlag{Name: "threats", Usage: "SWOT: threats"},
	}
}

// profileFromFlags builds and validates a profile from profileFlags.
func profileFromFlags(c *cli.Context) (profile.PreparationProfile, error) {
	p := profile.PreparationProfile{
		MonthsRemaining:   c.Int("months"),
		PhysicsMarks:      c.Int("physics-marks"),
		ChemistryMarks:    c.Int("chemistry-marks"),
		MathMarks:         c.Int("math-marks"),
		PhysicsSyllabus:   c.Int("physics-syllabus"),
		ChemistrySyllabus: c.Int("chemistry-syllabus"),
		MathSyllabus:      c.Int("math-syllabus"),
		Habits:            strings.TrimSpace(c.String("habits")),
		Strengths:         strings.TrimSpace(c.String("strengths")),
		Weaknesses:        strings.TrimSpace(c.String("weaknesses")),
		Opportunities:     strings.TrimSpace(c.String("opportunities")),
		Threats:           strings.TrimSpace(c.String("threats")),
	}
	if c.IsSet("target-percentile") {
		tp := c.Int("target-percentile")
		p.TargetPercentile = &tp
	}
	return p, p.Validate()
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the student and Parent/Teacher web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, Usage: "Port to listen on"},
			&cli.StringFlag{Name: "store", Usage: "Session store: memory|sqlite (default from config)"},
			variantFlag(),
			dryRunFlag(),
		},
		Action: func(c *cli.Context) error {
			srv, closeStore, err := buildServer(env, c)
			if err != nil {
				return outputError(err)
			}
			defer closeStore()

			if err := web.Run(srv, env.log); err != nil && err != http.ErrServerClosed {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// buildServer wires the web server for serve. The returned func closes the session store.
func buildServer(env *appEnv, c *cli.Context) (*http.Server, func(), error) {
	v, err := env.variant(c)
	if err != nil {
		return nil, nil, err
	}
	// Fails here when the API key is missing
	svc, err := env.services(c.Bool("dry-run")).For(v)
	if err != nil {
		return nil, nil, err
	}

	var (
		store      session.Store
		closeStore = func() {}
	)
	kind := c.String("store")
	if kind == "" {
		kind = env.cfg.SessionStore
	}
	switch kind {
	case config.SessionStoreMemory, "":
		store = session.NewMemoryStore()
	case config.SessionStoreSQLite:
		sqlite, err := session.OpenSQLite(env.baseDir)
		if err != nil {
			return nil, nil, errors.NewInternal(err)
		}
		store = sqlite
		closeStore = func() { _ = sqlite.Close() }
	default:
		return nil, nil, errors.NewInvalidRequest(fmt.Sprintf("unknown session store %q (want memory or sqlite)", kind))
	}

	srv, err := web.NewServer(web.Options{
		Service: svc,
		Store:   store,
		Config:  env.cfg,
		Logger:  env.log,
		Version: Version,
		Bind:    c.String("bind"),
		Port:    c.Int("port"),
	})
	if err != nil {
		closeStore()
		return nil, nil, errors.NewInternal(err)
	}
	return srv, closeStore, nil
}

// generateCmd creates the generate command.
func generateCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate a roadmap from the given profile and print it",
		Flags: append(profileFlags(), variantFlag(), dryRunFlag(),
			&cli.BoolFlag{Name: "json", Usage: "Print {variant, roadmap} as JSON"},
		),
		Action: func(c *cli.Context) error {
			v, err := env.variant(c)
			if err != nil {
				return outputError(err)
			}
			p, err := profileFromFlags(c)
			if err != nil {
				return outputError(err)
			}
			svc, err := env.services(c.Bool("dry-run")).For(v)
			if err != nil {
				return outputError(err)
			}

			text, err := svc.Draft(c.Context, p)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(mcp.RoadmapResponse{Variant: v.String(), Roadmap: text})
			}
			return outputText(text)
		},
	}
}

// regenerateCmd creates the regenerate command.
func regenerateCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "regenerate",
		Usage: "Revise a roadmap with feedback (reads the old roadmap from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "feedback", Aliases: []string{"f"}, Required: true, Usage: "Changes to make"},
			variantFlag(),
			dryRunFlag(),
			&cli.BoolFlag{Name: "json", Usage: "Print {variant, roadmap} as JSON"},
		},
		Action: func(c *cli.Context) error {
			// Require stdin input
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("the roadmap to revise must be piped via stdin"))
			}
			oldRoadmap, err := readStdin(maxStdinBytes)
			if err != nil {
				return outputError(err)
			}
			if oldRoadmap == "" {
				return outputError(errors.NewInvalidRequest("roadmap is required"))
			}

			v, err := env.variant(c)
			if err != nil {
				return outputError(err)
			}
			svc, err := env.services(c.Bool("dry-run")).For(v)
			if err != nil {
				return outputError(err)
			}

			text, err := svc.Revise(c.Context, oldRoadmap, c.String("feedback"))
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(mcp.RoadmapResponse{Variant: v.String(), Roadmap: text})
			}
			return outputText(text)
		},
	}
}

// promptCmd creates the prompt command.
func promptCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "prompt",
		Usage: "Print the generation prompt without calling the model",
		Flags: append(profileFlags(), variantFlag()),
		Action: func(c *cli.Context) error {
			v, err := env.variant(c)
			if err != nil {
				return outputError(err)
			}
			p, err := profileFromFlags(c)
			if err != nil {
				return outputError(err)
			}
			return outputText(prompt.Build(v, p))
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the roadmap tools over MCP stdio",
		Action: func(c *cli.Context) error {
			if unknown := mcp.ValidateDisabledTools(env.cfg.DisabledTools); len(unknown) > 0 {
				env.log.Warn("ignoring unknown disabled_tools", "tools", strings.Join(unknown, ","))
			}
			if err := mcp.Run(env.services(false), env.cfg, env.log, Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// sessionsCmd creates the sessions command group for the sqlite store.
func sessionsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Inspect or prune the sqlite session store",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Count stored sessions",
				Action: func(c *cli.Context) error {
					store, err := session.OpenSQLite(env.baseDir)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					defer store.Close()

					total, finalized, err := store.Stats(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]int{"total": total, "finalized": finalized})
				},
			},
			{
				Name:  "purge",
				Usage: "Delete sessions idle for longer than --older-than",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "older-than", Value: "30d", Usage: "Idle age, e.g. 7d"},
				},
				Action: func(c *cli.Context) error {
					days, err := parseDuration(c.String("older-than"))
					if err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}

					store, err := session.OpenSQLite(env.baseDir)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					defer store.Close()

					purged, err := store.PurgeIdle(c.Context, time.Duration(days)*24*time.Hour)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{
						"purged":  purged,
						"message": fmt.Sprintf("Purged %d session(s) idle for more than %d day(s)", purged, days),
					})
				},
			},
		},
	}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputText writes s and a trailing newline to stdout.
func outputText(s string) error {
	_, err := fmt.Fprintln(os.Stdout, s)
	return err
}

// outputError formats error for CLI.
func outputError(err error) error {
	rErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", rErr.Code, rErr.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin, up to limit bytes.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
