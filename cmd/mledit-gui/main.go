// mledit-gui opens an overlay editor on a host page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"github.com/joho/godotenv"

	"mledit/cmd/mledit-gui/internal/lock"
	"mledit/cmd/mledit-gui/internal/theme"
	"mledit/cmd/mledit-gui/internal/ui"
	"mledit/internal/config"
	"mledit/internal/content"
	"mledit/internal/document/htmldoc"
	"mledit/internal/logging"
	"mledit/internal/metrics"
	"mledit/internal/scanner"
	"mledit/internal/session"
	"mledit/internal/watcher"
)

var configPath = flag.String("config", "", "path to config file")

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mledit-gui [-config path] <page.html> [n]")
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	_ = godotenv.Load()

	path, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	initial := 0
	if flag.NArg() > 1 {
		if initial, err = strconv.Atoi(flag.Arg(1)); err != nil {
			log.Fatalf("invalid affordance number %q", flag.Arg(1))
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := logging.New(logging.FromConfig(cfg.Logging))
	if err != nil {
		log.Fatalf("initializing logging: %v", err)
	}
	logging.SetDefault(logger)

	held, err := lock.Acquire(path)
	if errors.Is(err, lock.ErrLocked) {
		log.Fatalf("%s is already open in another mledit window", path)
	}
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		w := new(app.Window)
		w.Option(app.Title("mledit - " + filepath.Base(path)))
		w.Option(app.Size(unit.Dp(1280), unit.Dp(800)))

		err := run(w, cfg, logger, path, initial)
		held.Release()
		logger.Close()
		if err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

func run(w *app.Window, cfg *config.Config, logger *logging.Logger, path string, initial int) error {
	rules, err := htmldoc.CompileRules(cfg.Match)
	if err != nil {
		return fmt.Errorf("compile match rules: %w", err)
	}
	doc, err := htmldoc.Open(path, rules, htmldoc.WithLogger(logger.WithComponent("document").Logger))
	if err != nil {
		return err
	}

	opts := []session.Option{
		session.WithTabWidth(cfg.Editor.TabWidth),
		session.WithLogger(logger.WithComponent("session").Logger),
		session.WithMetrics(metrics.GetMetrics()),
	}
	if cfg.Editor.CacheSize > 0 {
		cached, err := content.NewCachedClassifier(content.Default, cfg.Editor.CacheSize)
		if err != nil {
			return err
		}
		opts = append(opts, session.WithClassifier(cached))
	}
	if cfg.Editor.SchemaPath != "" {
		schema, err := content.LoadSchema(cfg.Editor.SchemaPath)
		if err != nil {
			return err
		}
		opts = append(opts, session.WithSchema(schema))
	}
	sess := session.New(doc, opts...)

	scanOpts := scanner.OptionsFromConfig(cfg.Scan)
	scanOpts.Logger = logger.WithComponent("scanner").Logger
	sc := scanner.New(doc, sess, scanOpts)

	fw, err := watcher.New([]string{path}, 200*time.Millisecond)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Start(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer fw.Stop()

	persist := func() error {
		if err := doc.Save(); err != nil {
			return err
		}
		return fw.Acknowledge(path)
	}

	t := theme.NewTheme(material.NewTheme())
	overlay := ui.NewOverlay(t, sess, sc, persist, w.Invalidate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc.Sweep()
	if initial > 0 {
		if aff, ok := sc.Affordance(initial); ok {
			if err := aff.Open(); err != nil {
				overlay.SetStatus(err.Error(), true)
			}
		} else {
			overlay.SetStatus(fmt.Sprintf("no affordance %d", initial), true)
		}
	}

	go sc.Run(ctx, cfg.ScanInterval())
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-fw.Events():
				changed, err := doc.Reload()
				if err != nil {
					overlay.SetStatus(err.Error(), true)
					continue
				}
				if changed {
					logger.Info("document re-rendered", "path", ev.Path)
					sc.Sweep()
					w.Invalidate()
				}
			case err := <-fw.Errors():
				logger.Warn("watch error", "error", err)
			}
		}
	}()

	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			overlay.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}
