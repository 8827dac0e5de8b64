package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"graphshift/internal/analyzer"
	"graphshift/internal/backend"
	"graphshift/internal/config"
	"graphshift/internal/kb"
	"graphshift/internal/pipeline"
	"graphshift/internal/store"
	"graphshift/internal/validate"
)

var rootCmd = &cobra.Command{
	Use:   "graphshift",
	Short: "Migrate C# code from the EWS managed API to the Microsoft Graph SDK",
	Long: `graphshift analyzes C# projects that use the deprecated Exchange Web
Services (EWS) managed API and converts the call sites it finds to the
Microsoft Graph SDK, using a tiered pipeline: deterministic templates
where the call shape allows it, guided completion at method scope, and
full-context conversion at class scope for everything else. Every
conversion is validated and scored before it is applied.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// environment is everything a command needs after configuration is resolved.
type environment struct {
	cfg      *config.Config
	roadmap  *kb.Accessor
	runner   *pipeline.Runner
	pipeline *pipeline.Pipeline
	store    *store.DB // nil unless databasePath is configured
}

// close releases the environment's resources.
func (e *environment) close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// buildEnvironment assembles the pipeline for a project root. needBackend is
// false for scan-only commands, which must work without an API key.
func buildEnvironment(root string, forcedTier int, needBackend bool) (*environment, error) {
	// Single-file targets read the configuration of their containing project.
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		root = filepath.Dir(root)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	roadmap, err := kb.Load(cfg.RoadmapPath)
	if err != nil {
		return nil, err
	}

	var completer backend.Completer
	if needBackend {
		completer, err = buildBackend(cfg)
		if err != nil {
			return nil, err
		}
	} else {
		completer = backend.CompleteFunc(func(context.Context, string, string) (string, error) {
			return "", backend.ErrNoBackend
		})
	}

	a := analyzer.New()
	var compiler validate.CompileChecker
	if cfg.CompileCheck {
		dotnet := validate.NewDotnetCompiler()
		dotnet.DotnetPath = cfg.DotnetPath
		compiler = dotnet
	}
	gate := validate.NewGate(validate.NewTreeSitterSyntax(a), compiler)

	p, err := pipeline.New(&pipeline.Config{
		KB:            roadmap,
		Analyzer:      a,
		Gate:          gate,
		Backend:       completer,
		ContextBudget: cfg.ContextBudget,
		ForcedTier:    forcedTier,
	})
	if err != nil {
		return nil, err
	}

	env := &environment{cfg: cfg, roadmap: roadmap, pipeline: p}

	var sink pipeline.Sink
	if cfg.DatabasePath != "" {
		db, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("opening results database: %w", err)
		}
		env.store = db
		sink = db
	}

	env.runner = pipeline.NewRunner(p, pipeline.RunnerConfig{
		MaxFiles: cfg.MaxFiles,
		Workers:  cfg.Workers,
		Sink:     sink,
	})
	return env, nil
}

func buildBackend(cfg *config.Config) (backend.Completer, error) {
	switch cfg.Backend {
	case "anthropic":
		return backend.NewAnthropic(&backend.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Endpoint:  cfg.Endpoint,
			MaxTokens: cfg.MaxTokens,
			Retry:     retryFromConfig(cfg),
		})
	case "relay":
		// The relay backend is injected by a host process embedding the
		// pipeline; the standalone CLI has nothing to relay through.
		return nil, fmt.Errorf("backend %q is only available when the pipeline is embedded in a host tool", cfg.Backend)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func retryFromConfig(cfg *config.Config) backend.RetryConfig {
	retry := backend.DefaultRetryConfig()
	if cfg.RequestsPerSecond > 0 {
		retry.RequestsPerSecond = cfg.RequestsPerSecond
	}
	if cfg.MaxConcurrentCalls > 0 {
		retry.MaxConcurrentCalls = cfg.MaxConcurrentCalls
	}
	return retry
}
