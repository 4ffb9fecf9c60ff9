// Command masher is the mashup engine CLI.
//
//	masher analyze <audio file>          print a track analysis as JSON
//	masher plan -recipe R <a> <b>        plan a mashup from two analyses
//	masher separate <audio file>         split a track into four stems
//	masher render -request <file>        render synchronously
//	masher submit -request <file>        enqueue a render job
//	masher status <job id>               report job progress
//	masher worker [-watch dir]           run the render worker pool
//
// Exit codes: 0 success, 1 user error, 2 processing failure, 3 I/O failure.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/songmash/lisbon/internal/analysis"
	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/config"
	"github.com/songmash/lisbon/internal/orchestrator"
	"github.com/songmash/lisbon/internal/planner"
	"github.com/songmash/lisbon/internal/render"
	"github.com/songmash/lisbon/internal/separation"
	"github.com/songmash/lisbon/internal/storage"
)

const (
	exitOK       = 0
	exitUser     = 1
	exitInternal = 2
	exitIO       = 3
)

var errUsage = errors.New("bad arguments")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitUser
	}
	cmd, rest := args[0], args[1:]

	var err error
	switch cmd {
	case "analyze":
		err = cmdAnalyze(rest)
	case "plan":
		err = cmdPlan(rest)
	case "separate":
		err = cmdSeparate(rest)
	case "render":
		err = cmdRender(rest)
	case "submit":
		err = cmdSubmit(rest)
	case "status":
		err = cmdStatus(rest)
	case "worker":
		err = cmdWorker(rest)
	default:
		usage()
		return exitUser
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "masher %s: %v\n", cmd, err)
		return exitCode(err)
	}
	return exitOK
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: masher <analyze|plan|separate|render|submit|status|worker> [flags] [args]")
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// exitCode maps the discriminated error kinds onto CLI exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, audio.ErrInvalidAudio),
		errors.Is(err, analysis.ErrTooShort),
		errors.Is(err, planner.ErrUnknownRecipe),
		errors.Is(err, orchestrator.ErrInvalidRequest),
		errors.Is(err, errUsage):
		return exitUser
	case errors.Is(err, storage.ErrArtifactIO),
		errors.Is(err, storage.ErrArtifactExists),
		errors.Is(err, os.ErrNotExist):
		return exitIO
	default:
		return exitInternal
	}
}

func cmdAnalyze(args []string) error {
	cfg, rest, err := config.Parse("analyze", args, nil)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: analyze <audio file>", errUsage)
	}
	logger := newLogger(cfg.LogLevel)

	analyzer := analysis.New(logger)
	analyzer.SampleRate = cfg.SampleRate
	result, err := analyzer.AnalyzeFile(context.Background(), rest[0])
	if err != nil {
		return err
	}
	return printJSON(result)
}

func cmdPlan(args []string) error {
	var recipe string
	_, rest, err := config.Parse("plan", args, func(fs *flag.FlagSet) {
		fs.StringVar(&recipe, "recipe", string(planner.RecipeAoverB), "mashup recipe (AoverB, BoverA, HybridDrums)")
	})
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return fmt.Errorf("%w: plan -recipe R <analysisA.json> <analysisB.json>", errUsage)
	}

	var a, b analysis.Result
	if err := readJSON(rest[0], &a); err != nil {
		return err
	}
	if err := readJSON(rest[1], &b); err != nil {
		return err
	}
	plan, err := planner.Build(a, b, planner.Recipe(recipe))
	if err != nil {
		return err
	}
	return printJSON(plan)
}

func cmdSeparate(args []string) error {
	var outDir string
	cfg, rest, err := config.Parse("separate", args, func(fs *flag.FlagSet) {
		fs.StringVar(&outDir, "out", "stems", "output directory for stems")
	})
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: separate [-out dir] <audio file>", errUsage)
	}
	logger := newLogger(cfg.LogLevel)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrArtifactIO, err)
	}

	var sep separation.Separator
	sep, err = separation.NewDemucsCLI(cfg.DemucsModel, cfg.DemucsDevice, logger)
	if err != nil {
		logger.Warn("separation model unavailable, falling back to passthrough", "error", err)
		sep = separation.NewPassthrough(logger)
	}
	defer sep.Close()

	stems, err := sep.Separate(context.Background(), rest[0], outDir)
	if err != nil {
		return err
	}
	return printJSON(stems)
}

func cmdRender(args []string) error {
	var reqPath, outPath, projectPath string
	cfg, _, err := config.Parse("render", args, func(fs *flag.FlagSet) {
		fs.StringVar(&reqPath, "request", "", "render request JSON")
		fs.StringVar(&outPath, "out", "mashup.wav", "output WAV path")
		fs.StringVar(&projectPath, "project", "project.json", "project descriptor output path")
	})
	if err != nil {
		return err
	}
	if reqPath == "" {
		return fmt.Errorf("%w: render -request <file>", errUsage)
	}
	logger := newLogger(cfg.LogLevel)

	var req orchestrator.Request
	if err := readJSON(reqPath, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	renderer := newRenderer(cfg, logger)
	stemsA, err := loadStems(req.Stems.A, cfg.SampleRate)
	if err != nil {
		return err
	}
	stemsB, err := loadStems(req.Stems.B, cfg.SampleRate)
	if err != nil {
		return err
	}

	result, err := renderer.Render(context.Background(), stemsA, stemsB, req.Plan, req.Mix)
	if err != nil {
		return err
	}
	for _, hint := range result.Hints {
		logger.Info("quality hint", "hint", hint)
	}
	if err := audio.WriteWAV24(outPath, result.Mix); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrArtifactIO, err)
	}
	descriptor, err := renderer.Describe(req.Plan, req.Mix, time.Now()).Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(projectPath, descriptor, 0o644); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrArtifactIO, err)
	}
	logger.Info("render complete", "mashup", outPath, "project", projectPath)
	return nil
}

func cmdSubmit(args []string) error {
	var reqPath string
	cfg, _, err := config.Parse("submit", args, func(fs *flag.FlagSet) {
		fs.StringVar(&reqPath, "request", "", "render request JSON")
	})
	if err != nil {
		return err
	}
	if reqPath == "" {
		return fmt.Errorf("%w: submit -request <file>", errUsage)
	}
	logger := newLogger(cfg.LogLevel)

	var req orchestrator.Request
	if err := readJSON(reqPath, &req); err != nil {
		return err
	}

	orch, closeAll, err := newOrchestrator(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAll()

	id, err := orch.Submit(req)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func cmdStatus(args []string) error {
	cfg, rest, err := config.Parse("status", args, nil)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: status <job id>", errUsage)
	}
	logger := newLogger(cfg.LogLevel)

	orch, closeAll, err := newOrchestrator(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAll()

	job, err := orch.Job(rest[0])
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"jobId":      job.ID,
		"status":     job.Status,
		"progress":   job.Progress,
		"message":    job.Message,
		"mashupUri":  job.MashupURI,
		"projectUri": job.ProjectURI,
		"error":      job.Error,
	})
}

func cmdWorker(args []string) error {
	var watchDir string
	cfg, _, err := config.Parse("worker", args, func(fs *flag.FlagSet) {
		fs.StringVar(&watchDir, "watch", "", "spool directory of render request JSON files")
	})
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	orch, closeAll, err := newOrchestrator(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		cancel()
	}()

	if watchDir != "" {
		go func() {
			if err := orch.Watch(ctx, watchDir); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("spool watcher stopped", "error", err)
			}
		}()
	}

	logger.Info("worker pool starting", "workers", cfg.Workers, "data_dir", cfg.DataDir)
	orch.Run(ctx)
	return nil
}

// newOrchestrator wires the registry, artifact store and renderer from
// configuration.
func newOrchestrator(cfg config.Config, logger *slog.Logger) (*orchestrator.Orchestrator, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", storage.ErrArtifactIO, err)
	}
	db, err := storage.Open(cfg.DataDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", storage.ErrArtifactIO, err)
	}

	var store storage.ArtifactStore
	switch cfg.StorageKind {
	case "s3":
		store, err = storage.NewS3StoreFromEnv(context.Background(), cfg.S3Bucket, cfg.S3Endpoint)
	default:
		store, err = storage.NewLocalStore(cfg.StorageDir)
	}
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	orch := orchestrator.New(db, store, newRenderer(cfg, logger), cfg.Workers, logger)
	return orch, func() { db.Close() }, nil
}

// newRenderer prefers the rubberband transform and falls back to identity.
func newRenderer(cfg config.Config, logger *slog.Logger) *render.Renderer {
	var transformer render.Transformer
	rb, err := render.NewRubberBand(logger)
	if err != nil {
		logger.Warn("pitch/time transform unavailable, stems will render untransformed", "error", err)
		transformer = render.Identity{}
	} else {
		transformer = rb
	}
	renderer := render.New(logger, transformer)
	renderer.SampleRate = cfg.SampleRate
	renderer.TargetLUFS = cfg.TargetLUFS
	renderer.HeadroomDB = cfg.HeadroomDB
	return renderer
}

func loadStems(uris orchestrator.StemURIs, rate int) (render.TrackStems, error) {
	stems := render.TrackStems{}
	for _, name := range render.StemNames {
		uri := uris.Get(name)
		if uri == "" {
			continue
		}
		pcm, err := audio.Load(uri, rate)
		if err != nil {
			return nil, err
		}
		stems[name] = pcm
	}
	return stems, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parse %s: %v", errUsage, path, err)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
