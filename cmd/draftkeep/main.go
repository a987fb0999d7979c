// Package main provides draftkeep, a command line front end for a folder of
// versioned drafts: text plus ordered images, with timestamped backups and
// age-based cleanup.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

const version = "0.1.0"

const (
	envRoot   = "DRAFTKEEP_ROOT"
	envConfig = "DRAFTKEEP_CONFIG"
)

// Options are the flags shared by every subcommand.
type Options struct {
	Root        string
	AppConfig   string
	RunFile     string
	JSON        bool
	ShowVersion bool
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func parseOptions(args []string, stderr io.Writer) (*Options, []string, error) {
	opts := &Options{}
	fs := flag.NewFlagSet("draftkeep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.Root, "root", os.Getenv(envRoot), "Data folder holding the groups (or set "+envRoot+")")
	fs.StringVar(&opts.AppConfig, "app-config", os.Getenv(envConfig), "Settings file (default ~/.draftkeep/config.json, or set "+envConfig+")")
	fs.StringVar(&opts.RunFile, "config", "", "Optional YAML run file overriding root, keep_days and auto_save_interval")
	fs.BoolVar(&opts.JSON, "json", false, "Print results as JSON")
	fs.BoolVar(&opts.ShowVersion, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "draftkeep - versioned drafts on disk\n\n")
		fmt.Fprintf(stderr, "Usage: draftkeep [options] <command> [args]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  groups [list|create|delete|use] <name>\n")
		fmt.Fprintf(stderr, "  save [group] -text-file FILE -image A.png -image B.png\n")
		fmt.Fprintf(stderr, "  load [group] [-out DIR] [-copy]\n")
		fmt.Fprintf(stderr, "  history [group]\n")
		fmt.Fprintf(stderr, "  clean [-keep-days N]\n")
		fmt.Fprintf(stderr, "  watch [group] -dir DIR [-interval 30s]\n")
		fmt.Fprintf(stderr, "  browse\n")
		fmt.Fprintf(stderr, "  config [show|set <key> <value>]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment Variables (also read from .env):\n")
		fmt.Fprintf(stderr, "  %-18s data folder\n", envRoot)
		fmt.Fprintf(stderr, "  %-18s settings file\n", envConfig)
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return opts, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, rest, err := parseOptions(args, os.Stderr)
	if err != nil {
		return err
	}
	if opts.ShowVersion {
		fmt.Fprintf(stdout, "draftkeep v%s\n", version)
		return nil
	}
	if len(rest) == 0 {
		return errors.New("missing command (run with -h for usage)")
	}

	a, err := newApp(opts, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "groups":
		return a.groups(cmdArgs)
	case "save":
		return a.save(ctx, cmdArgs)
	case "load":
		return a.load(ctx, cmdArgs)
	case "history":
		return a.history(cmdArgs)
	case "clean":
		return a.clean(ctx, cmdArgs)
	case "watch":
		return a.watch(ctx, cmdArgs)
	case "browse":
		return a.browse(ctx)
	case "config":
		return a.configCmd(cmdArgs)
	}
	return fmt.Errorf("unknown command %q", cmd)
}
