// fluxnodes CLI: run Labs image generation nodes from the command line.
//
// Usage:
//
//	fluxnodes generate --prompt "a red fox" [--model flux-pro-1.1]
//	fluxnodes history [--limit 20]
//	fluxnodes version
//
// The API key comes from the LABS_API_KEY environment variable or the
// api.key field of the config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/fluxnodes"
	"github.com/BaSui01/fluxnodes/config"
	"github.com/BaSui01/fluxnodes/journal"
	"github.com/BaSui01/fluxnodes/labs"
	"github.com/BaSui01/fluxnodes/nodes"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:])
	case "version":
		fmt.Println("fluxnodes", fluxnodes.Version)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  fluxnodes generate --prompt TEXT [flags]
  fluxnodes history  [--limit N]
  fluxnodes version`)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	model := fs.String("model", "flux-pro-1.1", "model endpoint")
	prompt := fs.String("prompt", "", "text prompt (required)")
	aspectRatio := fs.String("aspect-ratio", "1:1", "aspect ratio, e.g. 16:9")
	maxSize := fs.Int("max-size", 1024, "maximum image dimension in pixels")
	seed := fs.Int64("seed", -1, "seed for reproducibility, -1 for random")
	raw := fs.Bool("raw", false, "less processed, more natural images (classic models)")
	upsample := fs.Bool("upsample", false, "prompt upsampling (kontext models)")
	safety := fs.Int("safety", 2, "safety tolerance, 0 (strict) to 6")
	format := fs.String("format", "jpeg", "output format: jpeg or png")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Log.Level, *verbose)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	runner, err := fluxnodes.New(cfg, logger)
	if err != nil {
		return err
	}

	node := &nodes.TextToImage{
		Model:            *model,
		Prompt:           *prompt,
		AspectRatio:      *aspectRatio,
		MaxSize:          *maxSize,
		Raw:              *raw,
		PromptUpsampling: *upsample,
		SafetyTolerance:  *safety,
		OutputFormat:     *format,
	}
	if *seed >= 0 {
		node.Seed = seed
	}

	art, err := runner.Run(context.Background(), node, nil, labs.NewZapSink(logger.Named("progress")))
	if err != nil {
		return err
	}

	fmt.Println(art.Path)
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	limit := fs.Int("limit", 20, "number of records to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	j, err := journal.Open(cfg.Journal.Path, zap.NewNop())
	if err != nil {
		return err
	}

	records, err := j.Recent(context.Background(), *limit)
	if err != nil {
		return err
	}
	for _, rec := range records {
		seed := "random"
		if rec.Seed != nil {
			seed = fmt.Sprintf("%d", *rec.Seed)
		}
		fmt.Printf("%s  %-20s %-9s attempts=%-3d seed=%-10s %s\n",
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.Endpoint, rec.Status, rec.Attempts, seed, rec.AssetURL)
	}
	return nil
}

func buildLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
