package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/dave"
	bt "github.com/fwojciec/dave/bubbletea"
	"github.com/fwojciec/dave/fs"
	davejson "github.com/fwojciec/dave/json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// closeTimeout bounds remote cleanup after the TUI exits.
const closeTimeout = 30 * time.Second

func newRootCmd(env environment, home string) *cobra.Command {
	var f flags
	dataDir := filepath.Join(home, dataDirName)

	root := &cobra.Command{
		Use:   "dave",
		Short: "Ask questions about your data",
		Long: `dave uploads datasets to a hosted code-interpreter assistant and streams
its narration, generated code, output and charts into the terminal.

The provider is detected from OPENAI_API_KEY or GEMINI_API_KEY unless
--provider is given.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadResolved(f, env, dataDir)
			if err != nil {
				return err
			}
			return runInteractive(cmd.Context(), cfg, f)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.provider, "provider", "", "provider: openai, gemini (auto-detected from env vars if omitted)")
	pf.StringVar(&f.apiKey, "api-key", "", "API key (overrides the provider's env var)")
	pf.StringVar(&f.assistantID, "assistant-id", "", "OpenAI assistant id (overrides OPENAI_ASSISTANT_ID)")
	pf.StringVar(&f.model, "model", "", "model id (provider default if omitted)")
	pf.StringVar(&f.configPath, "config", "", "config file (default ~/.dave/config.yaml)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	fl := root.Flags()
	fl.StringArrayVar(&f.data, "data", nil, "dataset file or glob to upload, ** allowed (repeatable)")
	fl.DurationVar(&f.timeout, "timeout", 0, "maximum duration of one answer (default 10m)")
	fl.StringVar(&f.cacheDir, "cache-dir", "", "directory for cached charts (default ~/.dave/images)")
	fl.StringVar(&f.transcript, "transcript", "", "write the transcript as JSON to this path on exit")
	fl.StringVar(&f.auditLog, "audit-log", "", "append one JSON line per question to this path")

	root.AddCommand(newCheckCmd(&f, env, dataDir))
	return root
}

func newCheckCmd(f *flags, env environment, dataDir string) *cobra.Command {
	return &cobra.Command{
		Use:   "check <question>",
		Short: "Screen a question with the provider's moderation without asking it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadResolved(*f, env, dataDir)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogFile, f.verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			b, err := newBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return check(cmd.Context(), b, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
}

// check prints whether moderation flags question.
func check(ctx context.Context, m dave.Moderator, question string, w io.Writer) error {
	if err := dave.ValidateQuestion(question); err != nil {
		return err
	}
	flagged, err := m.Flagged(ctx, question)
	if err != nil {
		return fmt.Errorf("moderate: %w", err)
	}
	if flagged {
		fmt.Fprintln(w, "flagged")
		return nil
	}
	fmt.Fprintln(w, "ok")
	return nil
}

func loadResolved(f flags, env environment, dataDir string) (dave.Config, error) {
	path, isDefault := f.configPath, false
	if path == "" {
		path, isDefault = filepath.Join(dataDir, "config.yaml"), true
	}
	file, err := loadConfigFile(path, isDefault)
	if err != nil {
		return dave.Config{}, err
	}
	return resolveConfig(file, f, env, dataDir)
}

func runInteractive(ctx context.Context, cfg dave.Config, f flags) (err error) {
	logger, err := newLogger(cfg.LogFile, f.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Read datasets before contacting the provider so bad globs fail fast.
	var datasets []dave.Dataset
	if len(f.data) > 0 {
		datasets, err = fs.Datasets(f.data, cfg.Extensions)
		if err != nil {
			return err
		}
	}

	b, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := []dave.Option{
		dave.WithLogger(logger),
		dave.WithImageStore(fs.NewImageCache(cfg.CacheDir)),
		dave.WithArtifactStore(fs.NewDownloads(cfg.DownloadDir)),
		dave.WithRunRequest(cfg.RunRequest()),
		dave.WithTimeout(cfg.Timeout),
		dave.WithSessionPreamble(cfg.Preamble),
	}
	if cfg.AuditLog != "" {
		audit, err := davejson.OpenAuditLog(cfg.AuditLog)
		if err != nil {
			return err
		}
		defer audit.Close()
		opts = append(opts, dave.WithAuditLog(audit))
	}
	session := dave.NewSession(b, b, b, opts...)
	logger.Info("session started",
		zap.String("session_id", session.ID),
		zap.String("provider", cfg.Provider),
		zap.Int("datasets", len(datasets)))

	defer func() {
		// The TUI context may already be cancelled; cleanup gets its own.
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if cerr := session.Close(closeCtx); cerr != nil {
			logger.Warn("close session", zap.Error(cerr))
			err = errors.Join(err, fmt.Errorf("clean up remote resources: %w", cerr))
		}
	}()

	if len(datasets) > 0 {
		if err := session.Upload(ctx, datasets); err != nil {
			return fmt.Errorf("upload datasets: %w", err)
		}
	}

	ask := func(ctx context.Context, question string, observe func(dave.Snapshot)) error {
		return session.Ask(ctx, question, dave.WithObserver(observe))
	}
	if err := bt.Run(ctx, bt.New(ask, dave.DefaultTheme())); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	if f.transcript != "" && session.Transcript.Len() > 0 {
		if err := davejson.Save(f.transcript, session); err != nil {
			return fmt.Errorf("save transcript: %w", err)
		}
	}
	return nil
}
