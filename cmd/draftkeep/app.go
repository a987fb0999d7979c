package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	appconfig "github.com/entrhq/draftkeep/pkg/config"
	"github.com/entrhq/draftkeep/pkg/logging"
	"github.com/entrhq/draftkeep/pkg/services"
	"github.com/entrhq/draftkeep/pkg/vault"
)

var errNoRoot = errors.New("no data folder configured: use -root, set " + envRoot +
	", or run `draftkeep config set root <path>`")

type app struct {
	opts    *Options
	runFile *RunFile
	out     io.Writer
	logger  *logging.Logger
	slog    *slog.Logger

	store *vault.Store
	svc   *services.Services
}

func newApp(opts *Options, out io.Writer) (*app, error) {
	runFile, err := loadRunFile(opts.RunFile)
	if err != nil {
		return nil, err
	}

	if err := appconfig.Initialize(opts.AppConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	// NewLogger falls back to stderr on error, which is good enough for a CLI.
	logger, _ := logging.NewLogger("cli")

	return &app{
		opts:    opts,
		runFile: runFile,
		out:     out,
		logger:  logger,
		slog:    logger.Slog(),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Close()
}

func (a *app) root() string {
	switch {
	case a.opts.Root != "":
		return a.opts.Root
	case a.runFile.Root != "":
		return a.runFile.Root
	}
	return appconfig.GetStorage().Root()
}

func (a *app) keepDays() int {
	if a.runFile.KeepDays > 0 {
		return a.runFile.KeepDays
	}
	return appconfig.GetStorage().KeepDays()
}

func (a *app) autoSaveInterval() time.Duration {
	if a.runFile.AutoSaveInterval > 0 {
		return a.runFile.AutoSaveInterval
	}
	_, interval := appconfig.GetAutoSave().Settings()
	return interval
}

// openServices opens the store on first use so commands that only touch
// settings work without a data folder.
func (a *app) openServices() (*services.Services, error) {
	if a.svc != nil {
		return a.svc, nil
	}

	root := a.root()
	if root == "" {
		return nil, errNoRoot
	}

	opts := []vault.Option{vault.WithLogger(a.slog)}
	if a.runFile.ManifestVersion != "" {
		opts = append(opts, vault.WithManifestVersion(a.runFile.ManifestVersion))
	}
	store, err := vault.Open(root, opts...)
	if err != nil {
		return nil, err
	}

	a.logger.Infof("opened data folder %s", store.Root())
	a.store = store
	a.svc = services.New(store, a.slog)
	return a.svc, nil
}

// groupArg returns the group named on the command line, or the current group.
func (a *app) groupArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return appconfig.GetGroups().Current()
}

// report prints a service result as JSON or as a styled line.
func (a *app) report(res any, success bool, errText, okText string) error {
	if a.opts.JSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else if success && okText != "" {
		fmt.Fprintln(a.out, okStyle.Render(okText))
	}
	if !success {
		return errors.New(errText)
	}
	return nil
}

func (a *app) saveSettings() error {
	if err := appconfig.Global().SaveAll(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
