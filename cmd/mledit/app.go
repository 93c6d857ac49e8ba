package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"

	"mledit/internal/config"
	"mledit/internal/content"
	"mledit/internal/document/htmldoc"
	"mledit/internal/logging"
	"mledit/internal/metrics"
	"mledit/internal/scanner"
	"mledit/internal/session"
	"mledit/internal/surface"
)

// app holds the components shared by all commands.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	metrics    *metrics.EditorMetrics
	classifier content.Classifier
	schema     *content.Schema
	term       *surface.Terminal
}

func newApp() *app {
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("loading config: %v", err)
	}

	logger, err := logging.New(logging.FromConfig(cfg.Logging))
	if err != nil {
		fatal("initializing logging: %v", err)
	}
	logging.SetDefault(logger)

	a := &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics.GetMetrics(),
		classifier: content.Default,
	}

	if cfg.Editor.CacheSize > 0 {
		cached, err := content.NewCachedClassifier(content.Default, cfg.Editor.CacheSize)
		if err != nil {
			fatal("creating classifier cache: %v", err)
		}
		a.classifier = cached
	}

	if cfg.Editor.SchemaPath != "" {
		schema, err := content.LoadSchema(cfg.Editor.SchemaPath)
		if err != nil {
			fatal("loading schema: %v", err)
		}
		a.schema = schema
	}

	h := surface.NewHighlighter(cfg.Editor.HighlightStyle, !color.NoColor)
	a.term = surface.NewTerminal(os.Stdout, h)
	return a
}

func (a *app) close() {
	a.logger.Close()
}

func (a *app) openDocument(path string) *htmldoc.Document {
	rules, err := htmldoc.CompileRules(a.cfg.Match)
	if err != nil {
		fatal("compiling match rules: %v", err)
	}
	doc, err := htmldoc.Open(path, rules, htmldoc.WithLogger(a.logger.WithComponent("document").Logger))
	if err != nil {
		fatal("%v", err)
	}
	return doc
}

func (a *app) newSession(doc *htmldoc.Document) *session.Session {
	return session.New(doc,
		session.WithClassifier(a.classifier),
		session.WithSchema(a.schema),
		session.WithTabWidth(a.cfg.Editor.TabWidth),
		session.WithLogger(a.logger.WithComponent("session").Logger),
		session.WithMetrics(a.metrics),
	)
}

func (a *app) newScanner(doc *htmldoc.Document, sess *session.Session) *scanner.Scanner {
	opts := scanner.OptionsFromConfig(a.cfg.Scan)
	opts.Logger = a.logger.WithComponent("scanner").Logger
	opts.Metrics = a.metrics
	return scanner.New(doc, sess, opts)
}

// lookup sweeps doc once and returns the affordance named by arg.
func (a *app) lookup(sc *scanner.Scanner, arg string) *scanner.Affordance {
	id, err := strconv.Atoi(arg)
	if err != nil {
		fatal("invalid affordance number %q", arg)
	}
	sc.Sweep()
	aff, ok := sc.Affordance(id)
	if !ok {
		fatal("no affordance %d (run %s to list them)", id, color.New(color.Bold).Sprint("mledit scan"))
	}
	return aff
}

func printHeading(title string) {
	color.New(color.Bold).Printf("=== %s ===\n", title)
	fmt.Println()
}
