// Command warden analyzes source files for taint flows and async race
// conditions, verifies the findings, and reports the survivors.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/wardenhq/warden/finding"
	"github.com/wardenhq/warden/internal/cache"
	"github.com/wardenhq/warden/llm"
	"github.com/wardenhq/warden/pipeline"
	"github.com/wardenhq/warden/race"
	"github.com/wardenhq/warden/report"
	"github.com/wardenhq/warden/taint"
	"github.com/wardenhq/warden/verify"
)

const (
	exitOK = iota
	exitFindings
	exitError
)

var (
	flagProvider  = flag.String("provider", "", "LLM provider: anthropic, openai, gemini, ollama (empty disables LLM stages)")
	flagModel     = flag.String("model", "", "model name override")
	flagBaseURL   = flag.String("base-url", "", "base URL for the ollama provider")
	flagSarif     = flag.String("sarif", "", "write a SARIF report to this path")
	flagFailOn    = flag.String("fail-on", "high", "lowest severity that fails the run: critical, high, medium, low")
	flagBatchSize = flag.Int("batch-size", 0, "verification batch size (0 = default)")
	flagRoot      = flag.String("project-root", ".", "project root searched for .warden/taint_catalog.yaml overrides")
	flagVerbose   = flag.Bool("verbose", false, "debug logging")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()
	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: warden [flags] <file.py> ...")
		return exitError
	}

	level := hclog.Info
	if *flagVerbose {
		level = hclog.Debug
	}
	log := hclog.New(&hclog.LoggerOptions{Name: "warden", Level: level})

	threshold, err := failThreshold(*flagFailOn)
	if err != nil {
		log.Error("invalid_fail_on", "error", err)
		return exitError
	}

	ctx := context.Background()
	client, err := llm.NewClient(ctx, llm.Options{
		Provider: *flagProvider,
		Model:    *flagModel,
		BaseURL:  *flagBaseURL,
	})
	if err != nil {
		log.Error("llm_client_init_failed", "error", err)
		return exitError
	}

	catalog := taint.DefaultCatalog()
	if err := catalog.LoadOverrides(*flagRoot); err != nil {
		log.Error("catalog_overrides_failed", "error", err)
		return exitError
	}

	analyzer, err := taint.NewAnalyzer(catalog, taint.Config{}, log.Named("taint"))
	if err != nil {
		log.Error("analyzer_init_failed", "error", err)
		return exitError
	}

	frames := []pipeline.Frame{
		pipeline.NewSecurityFrame(analyzer, log.Named("security")),
		pipeline.NewRaceFrame(
			race.NewDetector(0),
			race.NewAdjudicator(client, log.Named("race")),
		),
	}
	verifier := verify.NewService(client, cache.NewMemory(), verify.NewSystemProbe(), log.Named("verify"), *flagBatchSize)
	runner := pipeline.NewRunner(frames, verifier, log)

	var loaded []*pipeline.CodeFile
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn("file_unreadable", "file", path, "error", err)
			continue
		}
		file, err := pipeline.LoadPython(ctx, path, string(content))
		if err != nil {
			log.Warn("file_unparseable", "file", path, "error", err)
			continue
		}
		loaded = append(loaded, file)
	}

	result, err := runner.Run(ctx, loaded)
	if err != nil {
		log.Error("run_failed", "error", err)
		return exitError
	}

	report.WriteConsole(os.Stdout, result)
	if *flagSarif != "" {
		out, err := os.Create(*flagSarif)
		if err != nil {
			log.Error("sarif_write_failed", "error", err)
			return exitError
		}
		defer out.Close()
		if err := report.WriteSarif(out, result); err != nil {
			log.Error("sarif_write_failed", "error", err)
			return exitError
		}
	}

	for _, f := range result.Findings {
		if f.Severity.Rank() >= threshold {
			return exitFindings
		}
	}
	return exitOK
}

// failThreshold resolves the -fail-on flag to a severity rank, rejecting
// values that are not a known severity so a typo cannot silently disable
// the failure exit code.
func failThreshold(value string) (int, error) {
	rank := finding.Severity(value).Rank()
	if rank == 0 {
		return 0, fmt.Errorf("unknown severity %q, want critical, high, medium or low", value)
	}
	return rank, nil
}
