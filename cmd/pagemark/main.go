// Command pagemark annotates a paged document from the command line: it
// loads (or generates) a document, optionally runs a JavaScript annotation
// script against it, and exports the annotated result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pagemark/pagemark/author"
	"github.com/pagemark/pagemark/engine"
	"github.com/pagemark/pagemark/observability"
	"github.com/pagemark/pagemark/render"
	"github.com/pagemark/pagemark/scripting"
)

type options struct {
	configPath string
	inPath     string
	outPath    string
	scriptPath string
	page       int
	timeout    time.Duration
	verbose    bool
}

func main() {
	opts := parseFlags()
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "pagemark: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pagemark [flags]\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.configPath, "config", "", "YAML config file")
	flag.StringVar(&opts.inPath, "in", "", "Input document (omit to generate a blank one)")
	flag.StringVar(&opts.outPath, "out", "annotated-document.pdf", "Output path")
	flag.StringVar(&opts.scriptPath, "script", "", "JavaScript annotation script")
	flag.IntVar(&opts.page, "page", 1, "Page to export")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Script execution timeout")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging")
	flag.Parse()
	return opts
}

func run(opts options) error {
	cfg := DefaultConfig()
	if opts.configPath != "" {
		loaded, err := LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	color, err := cfg.AnnotationColor()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	log := observability.SlogLogger{
		L: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}

	data, err := loadInput(opts, cfg)
	if err != nil {
		return err
	}

	ed, err := engine.New(render.NewPDFService(), author.NewPDFLoader(), engine.WithLogger(log))
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := ed.SetScale(ctx, cfg.Scale); err != nil {
		return err
	}
	if err := ed.Load(ctx, data); err != nil {
		return err
	}
	ed.SetColor(color)
	ed.SetStrokeWidth(cfg.StrokeWidth)

	if opts.scriptPath != "" {
		if err := runScript(ctx, opts, ed, log); err != nil {
			return err
		}
	}

	if err := ed.GoToPage(ctx, opts.page); err != nil {
		return err
	}
	out, err := ed.Export(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.outPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.outPath, err)
	}
	log.Info("document exported",
		observability.String("path", opts.outPath),
		observability.Int("bytes", len(out)),
	)
	return nil
}

func loadInput(opts options, cfg *Config) ([]byte, error) {
	if opts.inPath != "" {
		data, err := os.ReadFile(opts.inPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", opts.inPath, err)
		}
		return data, nil
	}
	return author.NewBlankPDF(cfg.Blank.Pages, cfg.Blank.Width, cfg.Blank.Height)
}

func runScript(ctx context.Context, opts options, ed *engine.Editor, log observability.Logger) error {
	src, err := os.ReadFile(opts.scriptPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.scriptPath, err)
	}
	eng := scripting.NewEngine()
	if err := eng.RegisterDOM(scripting.NewEditorDOM(ed, log)); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	if _, err := eng.Execute(ctx, string(src)); err != nil {
		return fmt.Errorf("script %s: %w", opts.scriptPath, err)
	}
	return nil
}
