package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atotto/clipboard"
	"github.com/entrhq/draftkeep/pkg/autosave"
	appconfig "github.com/entrhq/draftkeep/pkg/config"
	"github.com/entrhq/draftkeep/pkg/dataurl"
	"github.com/entrhq/draftkeep/pkg/tui"
	"github.com/entrhq/draftkeep/pkg/vault"
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// parseInterleaved lets positional arguments appear before flags, e.g.
// `save math -text-file f.txt`.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func (a *app) groups(args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	if sub != "list" && len(args) == 0 {
		return fmt.Errorf("groups %s: missing group name", sub)
	}

	svc, err := a.openServices()
	if err != nil {
		return err
	}
	cfg := appconfig.GetGroups()

	switch sub {
	case "list":
		res := svc.ListGroups()
		if !res.Success || a.opts.JSON {
			return a.report(res, res.Success, res.Error, "")
		}
		names := res.Groups
		for _, g := range cfg.List() {
			if !slices.Contains(names, g) {
				names = append(names, g)
			}
		}
		slices.Sort(names)
		fmt.Fprintln(a.out, headerStyle.Render("Groups in "+a.store.Root()))
		for _, name := range names {
			marker := "  "
			if name == cfg.Current() {
				marker = "* "
			}
			fmt.Fprintln(a.out, marker+name)
		}
		return nil

	case "create":
		name := args[0]
		res := svc.CreateGroup(name)
		if !res.Success {
			return a.report(res, false, res.Error, "")
		}
		if err := cfg.AddGroup(name); err != nil && !errors.Is(err, appconfig.ErrGroupExists) {
			return err
		}
		if err := a.saveSettings(); err != nil {
			return err
		}
		return a.report(res, true, "", "created "+name)

	case "delete":
		name := args[0]
		if err := cfg.RemoveGroup(name); err != nil && !errors.Is(err, appconfig.ErrGroupNotFound) {
			return err
		}
		res := svc.DeleteGroup(name)
		if !res.Success {
			return a.report(res, false, res.Error, "")
		}
		if err := a.saveSettings(); err != nil {
			return err
		}
		return a.report(res, true, "", "deleted "+name)

	case "use":
		name := args[0]
		if err := cfg.SwitchGroup(name); errors.Is(err, appconfig.ErrGroupNotFound) && a.store.Exists(name) {
			if err := cfg.AddGroup(name); err != nil {
				return err
			}
			err = cfg.SwitchGroup(name)
			if err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if err := a.saveSettings(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, okStyle.Render("current group: "+name))
		return nil
	}
	return fmt.Errorf("unknown groups subcommand %q", sub)
}

func (a *app) save(ctx context.Context, args []string) error {
	fs := newFlagSet("save")
	textFile := fs.String("text-file", "", "File holding the draft text, - for stdin")
	var images stringList
	fs.Var(&images, "image", "PNG image in slot order (repeatable)")
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	group := a.groupArg(positional)

	var text []byte
	switch *textFile {
	case "":
	case "-":
		text, err = io.ReadAll(os.Stdin)
	default:
		text, err = os.ReadFile(*textFile)
	}
	if err != nil {
		return fmt.Errorf("failed to read text: %w", err)
	}

	encoded := make([]string, 0, len(images))
	for _, path := range images {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		encoded = append(encoded, dataurl.EncodePNG(data))
	}

	svc, err := a.openServices()
	if err != nil {
		return err
	}
	res := svc.SaveToGroup(ctx, group, string(text), encoded)

	summary := fmt.Sprintf("saved %s (text changed: %t, images changed: %t)", group, res.ContentChanged, res.ImagesChanged)
	return a.report(res, res.Success, res.Error, summary)
}

func (a *app) load(ctx context.Context, args []string) error {
	fs := newFlagSet("load")
	outDir := fs.String("out", "", "Write draft.txt and image<N>.png into this directory")
	toClipboard := fs.Bool("copy", false, "Copy the draft text to the clipboard")
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	group := a.groupArg(positional)

	svc, err := a.openServices()
	if err != nil {
		return err
	}
	res := svc.LoadFromGroup(ctx, group)
	if !res.Success {
		return a.report(res, false, res.Error, "")
	}

	if *outDir != "" {
		if err := exportDraft(*outDir, res.Data.Text, res.Data.Images); err != nil {
			return err
		}
	}
	if *toClipboard {
		if err := clipboard.WriteAll(res.Data.Text); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
	}

	if a.opts.JSON {
		return a.report(res, true, "", "")
	}
	fmt.Fprintln(a.out, res.Data.Text)
	fmt.Fprintln(a.out, mutedStyle.Render(fmt.Sprintf("%d images", len(res.Data.Images))))
	return nil
}

func exportDraft(dir, text string, images []string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, vault.DraftFile), []byte(text), 0o640); err != nil {
		return fmt.Errorf("failed to write text: %w", err)
	}
	for i, img := range images {
		data, err := dataurl.Decode(img)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("image%d.png", i+1)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o640); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

func (a *app) history(args []string) error {
	group := a.groupArg(args)
	if _, err := a.openServices(); err != nil {
		return err
	}
	revisions, err := a.store.History(group)
	if err != nil {
		return err
	}

	if a.opts.JSON {
		return a.report(revisions, true, "", "")
	}
	if len(revisions) == 0 {
		fmt.Fprintln(a.out, mutedStyle.Render("no history for "+group))
		return nil
	}

	fmt.Fprintln(a.out, headerStyle.Render("History of "+group))
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, rev := range revisions {
		fmt.Fprintf(tw, "%s\t%s\t%d bytes\t%s\n",
			rev.Stamp.Format("2006-01-02 15:04:05"), rev.Kind, rev.Size, rev.Name)
	}
	return tw.Flush()
}

func (a *app) clean(ctx context.Context, args []string) error {
	fs := newFlagSet("clean")
	keepDays := fs.Int("keep-days", a.keepDays(), "Delete backups and versions older than this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := a.openServices()
	if err != nil {
		return err
	}
	res := svc.CleanOldVersions(ctx, *keepDays)
	return a.report(res, res.Success, res.Error,
		fmt.Sprintf("cleaned %d files older than %d days", res.Cleaned, *keepDays))
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := newFlagSet("watch")
	dir := fs.String("dir", ".", "Working directory holding draft.txt and *.png")
	interval := fs.Duration("interval", a.autoSaveInterval(), "Save period")
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	group := a.groupArg(positional)

	if _, err := a.openServices(); err != nil {
		return err
	}
	groupDir, err := a.store.GroupPath(group)
	if err != nil {
		return err
	}
	workDir, err := filepath.Abs(*dir)
	if err != nil {
		return err
	}
	if workDir == groupDir {
		return errors.New("watch: the working directory cannot be the group directory")
	}

	saver := autosave.New(
		autosave.DirSource{Dir: workDir},
		autosave.StoreSaveFunc(a.store, group),
		autosave.WithInterval(*interval),
		autosave.WithLogger(a.slog),
	)
	current, err := a.store.Load(ctx, group)
	if err != nil {
		return err
	}
	saver.UpdateLastSaved(current)

	if err := saver.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("watching %s into %s every %s (ctrl+c to stop)", workDir, group, *interval)))

	<-ctx.Done()
	saver.Stop()

	// One last save so edits made just before shutdown are kept.
	saved, err := saver.SaveIfChanged(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	if saved {
		fmt.Fprintln(a.out, okStyle.Render("saved pending changes"))
	}
	return nil
}

func (a *app) browse(ctx context.Context) error {
	if _, err := a.openServices(); err != nil {
		return err
	}
	return tui.Run(ctx, a.store, a.keepDays(), tui.WithGroups(appconfig.GetGroups(), a.saveSettings))
}

func (a *app) configCmd(args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "show":
		if a.opts.JSON {
			all := map[string]map[string]any{}
			for _, s := range appconfig.Global().GetSections() {
				all[s.ID()] = s.Data()
			}
			return a.report(all, true, "", "")
		}
		for _, s := range appconfig.Global().GetSections() {
			fmt.Fprintln(a.out, headerStyle.Render(s.Title()))
			data := s.Data()
			keys := make([]string, 0, len(data))
			for k := range data {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(a.out, "  %s: %v\n", k, data[k])
			}
		}
		return nil

	case "set":
		if len(args) != 2 {
			return errors.New("usage: config set <root|keep-days|auto-save|auto-save-interval> <value>")
		}
		if err := applySetting(args[0], args[1]); err != nil {
			return err
		}
		if err := a.saveSettings(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, okStyle.Render(args[0]+" = "+args[1]))
		return nil
	}
	return fmt.Errorf("unknown config subcommand %q", sub)
}

func applySetting(key, value string) error {
	switch key {
	case "root":
		abs, err := filepath.Abs(value)
		if err != nil {
			return err
		}
		appconfig.GetStorage().SetRoot(abs)
	case "keep-days":
		days, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("keep-days: %w", err)
		}
		return appconfig.GetStorage().SetData(map[string]any{"keep_version_days": days})
	case "auto-save":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("auto-save: %w", err)
		}
		appconfig.GetAutoSave().SetEnabled(enabled)
	case "auto-save-interval":
		interval, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("auto-save-interval: %w", err)
		}
		appconfig.GetAutoSave().SetInterval(interval)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}
