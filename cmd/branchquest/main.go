// BranchQuest plays branching Lua adventures in the terminal.
// Usage: branchquest [--version] [--plain] [--script <file>] [--trace] [--lint] [--config <file>] [game_directory]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/nathoo/branchquest/cli"
	"github.com/nathoo/branchquest/config"
	"github.com/nathoo/branchquest/content"
	"github.com/nathoo/branchquest/engine"
	"github.com/nathoo/branchquest/engine/save"
	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/loader"
	"github.com/nathoo/branchquest/logger"
	"github.com/nathoo/branchquest/telemetry"
	"github.com/nathoo/branchquest/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: branchquest [--version] [--plain] [--script <file>] [--trace] [--lint] [--config <file>] [game_directory]"

type options struct {
	plain      bool
	trace      bool
	lint       bool
	version    bool
	scriptFile string
	configFile string
	gameDir    string
}

func parseArgs(args []string) (options, error) {
	opts := options{configFile: "branchquest.yaml"}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			opts.version = true
		case "--plain":
			opts.plain = true
		case "--trace":
			opts.trace = true
		case "--lint":
			opts.lint = true
		case "--script", "--config":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a file path", args[i])
			}
			i++
			if args[i-1] == "--script" {
				opts.scriptFile = args[i]
			} else {
				opts.configFile = args[i]
			}
		default:
			if opts.gameDir == "" {
				opts.gameDir = args[i]
			}
		}
	}
	return opts, nil
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	if opts.version {
		fmt.Printf("branchquest %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if opts.gameDir != "" {
		cfg.GameDir = opts.gameDir
	}

	fullScreen := opts.scriptFile == "" && !opts.plain && !opts.lint && isTerminal()
	logOut, closeLog, err := logWriter(cfg, fullScreen)
	if err != nil {
		return err
	}
	defer closeLog()
	log := logger.Setup(cfg, logOut)

	if opts.lint {
		return lint(cfg, log)
	}

	tracer := telemetry.NoopTracer()
	if cfg.Telemetry {
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			log.Warn("telemetry disabled", "error", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(sctx)
			}()
			tracer = telemetry.Tracer("engine")
		}
	}

	defs, err := loadGame(cfg, log)
	if err != nil {
		return fmt.Errorf("loading game: %w", err)
	}
	defer defs.Close()
	if cfg.Fallback != "" {
		if _, ok := defs.Scene(cfg.Fallback); ok {
			defs.Recovery = cfg.Fallback
		} else {
			log.Warn("configured fallback scene not found; using start", "scene", cfg.Fallback)
		}
	}

	session := sessionID(cfg, log)
	log = logger.WithSession(log, session.String())

	eng := engine.New(defs)
	eng.Logger = log
	eng.Tracer = tracer
	eng.LevelUp = engine.LevelUpPolicy{
		XPPerLevel:      cfg.LevelUp.XPPerLevel,
		HealthBonus:     cfg.LevelUp.HealthBonus,
		MagicBonus:      cfg.LevelUp.MagicBonus,
		ResetExperience: cfg.LevelUp.ResetExperience,
	}

	slot, closeSlot, err := persister(ctx, cfg, session, defs, log)
	if err != nil {
		return err
	}
	defer closeSlot()
	if err := resume(ctx, eng, slot, log); err != nil {
		return err
	}
	if slot != nil {
		eng.Store.Subscribe(save.Autosave(slot, 2*time.Second, log))
	}

	seed := func() int64 { return time.Now().UnixNano() }

	if opts.scriptFile != "" {
		f, err := os.Open(opts.scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := newCLI(eng, defs, cfg, slot, seed, opts.trace)
		c.In = f
		c.EchoInput = true
		c.Run(ctx)
		return nil
	}

	if !fullScreen {
		newCLI(eng, defs, cfg, slot, seed, opts.trace).Run(ctx)
		return nil
	}

	return tui.Run(ctx, eng, defs, tui.Options{SaveDir: cfg.SaveDir, Slot: slot, Seed: seed})
}

func newCLI(eng *engine.Engine, defs *state.Defs, cfg *config.Config, slot save.Persister, seed func() int64, trace bool) *cli.CLI {
	g := defs.Game
	fmt.Printf("%s v%s by %s\n\n", g.Title, g.Version, g.Author)
	c := cli.New(eng, defs)
	c.SaveDir = cfg.SaveDir
	c.Slot = slot
	c.Seed = seed
	c.Trace = trace
	return c
}

// logWriter picks the log destination. The full-screen UI owns the
// terminal, so without a log file its logs are dropped.
func logWriter(cfg *config.Config, fullScreen bool) (io.Writer, func(), error) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		return f, func() { f.Close() }, nil
	}
	if fullScreen {
		return io.Discard, func() {}, nil
	}
	return os.Stderr, func() {}, nil
}

func contentFS(cfg *config.Config) (fs.FS, error) {
	if cfg.GameDir == "" {
		return content.Game(), nil
	}
	info, err := os.Stat(cfg.GameDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cfg.GameDir)
	}
	return os.DirFS(cfg.GameDir), nil
}

func loadGame(cfg *config.Config, log *slog.Logger) (*state.Defs, error) {
	if cfg.GameDir != "" {
		return loader.Load(cfg.GameDir, log)
	}
	return loader.LoadFS(content.Game(), log)
}

func lint(cfg *config.Config, log *slog.Logger) error {
	fsys, err := contentFS(cfg)
	if err != nil {
		return err
	}
	report, err := loader.Lint(fsys, log)
	if err != nil {
		return err
	}
	report.Write(os.Stdout)
	if !report.OK() {
		return errors.New("content has errors")
	}
	return nil
}

// sessionID parses the configured session id, or starts a new session.
func sessionID(cfg *config.Config, log *slog.Logger) uuid.UUID {
	if cfg.SessionID != "" {
		id, err := uuid.Parse(cfg.SessionID)
		if err == nil {
			return id
		}
		log.Warn("invalid session id; starting a new session", "session_id", cfg.SessionID, "error", err)
	}
	return uuid.New()
}

// persister builds the session slot for the configured store. A nil
// persister means progress is not kept between runs.
func persister(ctx context.Context, cfg *config.Config, session uuid.UUID, defs *state.Defs, log *slog.Logger) (save.Persister, func(), error) {
	switch cfg.Store {
	case config.StoreFile:
		if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating save dir: %w", err)
		}
		return save.NewFileStore(cfg.SavePath(), defs), func() {}, nil
	case config.StoreRedis:
		rs := save.NewRedisStore(cfg.RedisAddr, session, defs, 0, log)
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		log.Info("using redis store", "key", rs.Key())
		return rs, func() { rs.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

// resume restores the saved game from slot, or starts a new one with a
// fresh dice seed.
func resume(ctx context.Context, eng *engine.Engine, slot save.Persister, log *slog.Logger) error {
	if slot != nil {
		s, ok, err := slot.Load(ctx)
		switch {
		case err != nil:
			log.Warn("could not load saved game; starting over", "error", err)
		case ok:
			eng.Store.Restore(s)
			log.Info("resumed saved game", "scene", s.CurrentScene)
			return nil
		}
	}
	return eng.Reset(time.Now().UnixNano())
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
