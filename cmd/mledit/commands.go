package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"

	"mledit/internal/config"
	"mledit/internal/document"
	"mledit/internal/document/htmldoc"
	"mledit/internal/health"
	"mledit/internal/scanner"
	"mledit/internal/session"
	"mledit/internal/surface"
	"mledit/internal/watcher"
)

const reloadDebounce = 200 * time.Millisecond

func cmdClassify(args []string) {
	a := newApp()
	defer a.close()

	var (
		data []byte
		err  error
	)
	if len(args) > 0 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fatal("reading value: %v", err)
	}

	c := a.classifier.Classify(string(data))
	fmt.Printf("Kind: %s\n", color.New(color.Bold).Sprint(c.Kind))
	if c.Warning != "" {
		color.Yellow("Warning: %s", c.Warning)
	}
	if err := a.schema.Check(c); err != nil {
		color.Yellow("Schema: %v", err)
	}
	fmt.Println()
	if err := a.term.Highlighter.Highlight(os.Stdout, c.Kind, c.Display); err != nil {
		fatal("%v", err)
	}
	fmt.Println()
}

func cmdScan(path string) {
	a := newApp()
	defer a.close()

	doc := a.openDocument(path)
	sc := a.newScanner(doc, a.newSession(doc))
	res := sc.Sweep()

	affs := sc.Affordances()
	if len(affs) == 0 {
		fmt.Println("No affordances found.")
		return
	}
	if err := a.term.ListAffordances(affs); err != nil {
		fatal("%v", err)
	}
	fmt.Println()
	fmt.Printf("%s edit, %s view, %d cells below threshold\n",
		color.GreenString("%d", res.Edits), color.CyanString("%d", res.Views), res.Skipped)
}

func cmdView(path, arg string) {
	a := newApp()
	defer a.close()

	doc := a.openDocument(path)
	sess := a.newSession(doc)
	aff := a.lookup(a.newScanner(doc, sess), arg)

	var err error
	if aff.Kind == scanner.KindEdit {
		err = sess.Open(session.Request{Field: aff.Field(), ReadOnly: true})
	} else {
		err = aff.Open()
	}
	if err != nil {
		fatal("%v", err)
	}
	if err := a.term.Render(sess.View()); err != nil {
		fatal("%v", err)
	}
	sess.Cancel()
}

func cmdInit() {
	cfg, created, err := config.LoadOrCreate(*configPath)
	if err != nil {
		fatal("%v", err)
	}
	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	if !created {
		fmt.Printf("Config already exists: %s\n", path)
		return
	}
	color.Green("Wrote default config to %s", path)
	fmt.Printf("Scan interval: %s\n", cfg.ScanInterval())
}

func cmdEdit(args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	toStdout := fs.Bool("stdout", false, "write the updated page to stdout instead of saving it")
	fs.Parse(args)
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: mledit edit [-stdout] <page.html> <n>")
		os.Exit(1)
	}

	a := newApp()
	defer a.close()

	doc := a.openDocument(fs.Arg(0))
	sess := a.newSession(doc)
	aff := a.lookup(a.newScanner(doc, sess), fs.Arg(1))
	if aff.Kind != scanner.KindEdit {
		fatal("affordance %d is read-only; use %s", aff.ID, color.New(color.Bold).Sprint("mledit view"))
	}
	if err := aff.Open(); err != nil {
		fatal("%v", err)
	}
	for _, w := range sess.View().Warnings {
		color.Yellow("Warning: %s", w)
	}

	command := a.cfg.Editor.Command
	if command == "" {
		command = surface.EditorCommand()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := surface.NewExternal(command).EditSession(ctx, sess)
	if err != nil {
		fatal("%v", err)
	}
	if !res.Committed {
		fmt.Fprintln(os.Stderr, "No changes saved.")
		return
	}
	if *toStdout {
		if _, err := doc.WriteTo(os.Stdout); err != nil {
			fatal("%v", err)
		}
		return
	}
	if err := doc.Save(); err != nil {
		fatal("%v", err)
	}

	if res.Fallback {
		color.Yellow("Warning: the edited value is no longer valid JSON and was saved as plain text")
	}
	color.Green("Saved %s (%d bytes) to %s", res.FieldKey, len(res.Value), doc.Path())
}

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	showMetrics := fs.Bool("metrics", false, "print metrics on exit")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mledit watch [-metrics] <page.html>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	a := newApp()
	defer a.close()

	doc := a.openDocument(path)
	sess := a.newSession(doc)
	sc := a.newScanner(doc, sess)
	sc.OnAttach(func(aff *scanner.Affordance) {
		a.logger.Info("affordance attached", "id", aff.ID, "kind", aff.Kind.String(), "key", aff.Key())
	})

	w, err := watcher.New([]string{doc.Path()}, reloadDebounce)
	if err != nil {
		fatal("creating watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		fatal("starting watcher: %v", err)
	}
	defer w.Stop()

	interval := a.cfg.ScanInterval()
	loader := config.NewLoader(*configPath)
	if _, err := loader.Load(); err == nil {
		interval = loader.Config().ScanInterval()
		if err := loader.Watch(); err != nil {
			a.logger.Warn("config hot reload unavailable", "error", err)
		}
	}
	defer loader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := newScanRunner(ctx, sc)
	runner.restart(interval)
	loader.OnChange(func(cfg *config.Config) {
		a.logger.Info("configuration reloaded", "interval", cfg.ScanInterval())
		runner.restart(cfg.ScanInterval())
	})

	a.logger.Info("watching document", "paths", w.WatchedPaths(), "interval", interval)
	fmt.Printf("Watching %s (Ctrl+C to stop)\n", doc.Path())

	for {
		select {
		case <-ctx.Done():
			runner.stop()
			if n := w.PendingFiles(); n > 0 {
				a.logger.Debug("discarding unsettled changes", "files", n)
			}
			fmt.Println()
			fmt.Printf("Active affordances: %d\n", len(sc.Affordances()))
			if *showMetrics {
				a.metrics.Registry().WritePrometheus(os.Stdout)
			}
			return
		case ev := <-w.Events():
			reloadDocument(a, doc, sc, ev)
		case err := <-w.Errors():
			a.logger.Warn("watch error", "error", err)
		case err := <-loader.Errors():
			a.logger.Warn("config reload failed", "error", err)
		}
	}
}

func reloadDocument(a *app, doc *htmldoc.Document, sc *scanner.Scanner, ev watcher.Event) {
	changed, err := doc.Reload()
	if err != nil {
		a.logger.Warn("reload failed", "path", ev.Path, "error", err)
		return
	}
	if !changed {
		return
	}
	res := sc.Sweep()
	a.logger.Info("document re-rendered", "path", ev.Path, "size", ev.Size,
		"pruned", res.Pruned, "edits", res.Edits, "views", res.Views)
}

// scanRunner runs the scanner ticker and restarts it when the interval
// changes.
type scanRunner struct {
	ctx    context.Context
	sc     *scanner.Scanner
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newScanRunner(ctx context.Context, sc *scanner.Scanner) *scanRunner {
	return &scanRunner{ctx: ctx, sc: sc}
}

func (r *scanRunner) restart(interval time.Duration) {
	r.stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, cancel := context.WithCancel(r.ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.sc.Run(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "scanner stopped: %v\n", err)
		}
	}()
}

func (r *scanRunner) stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print metrics as JSON")
	fs.Parse(args)
	args = fs.Args()

	a := newApp()
	defer a.close()

	printHeading("mledit Status")

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Config: %s %s\n", path, color.YellowString("(not found, using defaults)"))
	} else {
		fmt.Printf("Config: %s\n", path)
	}
	fmt.Println()

	fmt.Println("Effective configuration:")
	if err := toml.NewEncoder(os.Stdout).Encode(a.cfg); err != nil {
		fatal("encoding config: %v", err)
	}
	fmt.Println()

	checker := a.healthChecker(args)
	results := checker.Check(context.Background())
	fmt.Println("Health:")
	for _, name := range checker.Names() {
		r := results[name]
		line := fmt.Sprintf("  %-10s %s", name, statusString(r.Status))
		if r.Message != "" {
			line += "  " + r.Message
		}
		if r.Error != "" {
			line += ": " + r.Error
		}
		fmt.Println(line)
	}
	fmt.Printf("  Overall: %s\n", statusString(checker.OverallStatus()))
	fmt.Println()

	if len(args) > 0 {
		doc := a.openDocument(args[0])
		sc := a.newScanner(doc, a.newSession(doc))
		res := sc.Sweep()
		fmt.Printf("Document: %s\n", doc.Path())
		fmt.Printf("  Edit affordances: %d\n", res.Edits)
		fmt.Printf("  View affordances: %d\n", res.Views)
		fmt.Printf("  Cells below threshold: %d\n", res.Skipped)
		fmt.Println()
	}

	fmt.Println("Metrics:")
	write := a.metrics.Registry().WritePrometheus
	if *asJSON {
		write = a.metrics.Registry().WriteJSON
	}
	if err := write(os.Stdout); err != nil {
		fatal("writing metrics: %v", err)
	}
}

func (a *app) healthChecker(args []string) *health.Checker {
	checker := health.NewChecker()
	checker.RegisterFunc("config", true, health.ConfigCheck(a.cfg))

	command := a.cfg.Editor.Command
	if command == "" {
		command = surface.EditorCommand()
	}
	checker.RegisterFunc("editor", false, health.CommandCheck(command))

	if out := a.cfg.Logging.Output; out == "file" || out == "both" {
		checker.RegisterFunc("log_dir", false, health.DirWritableCheck(filepath.Dir(a.cfg.Logging.FilePath)))
	}
	if a.cfg.Editor.SchemaPath != "" {
		checker.RegisterFunc("schema", false, health.SchemaCheck(a.cfg.Editor.SchemaPath))
	}
	if len(args) > 0 {
		page := args[0]
		checker.RegisterFunc("document", true, health.DocumentCheck(func() (document.Document, error) {
			rules, err := htmldoc.CompileRules(a.cfg.Match)
			if err != nil {
				return nil, err
			}
			return htmldoc.Open(page, rules)
		}))
	}
	return checker
}

func statusString(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return color.GreenString(string(s))
	case health.StatusDegraded, health.StatusUnknown:
		return color.YellowString(string(s))
	default:
		return color.RedString(string(s))
	}
}
