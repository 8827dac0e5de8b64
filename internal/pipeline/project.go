package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"graphshift/internal/types"
)

const (
	// DefaultMaxFiles caps a project run; larger trees are truncated with a
	// warning rather than processed open-ended.
	DefaultMaxFiles = 500

	// DefaultWorkers bounds concurrent file conversions.
	DefaultWorkers = 4
)

// Sink receives completed batches and the final summary. Implementations must
// tolerate being called from the single collector goroutine only.
type Sink interface {
	WriteBatch(ctx context.Context, runID string, batch *types.FileConversionBatch) error
	WriteSummary(ctx context.Context, summary *types.ProjectConversionSummary) error
}

// Runner fans a project's C# files out to a bounded worker pool. Each file is
// converted independently; one bad file is recorded as a failure and never
// aborts the run.
type Runner struct {
	pipeline *Pipeline
	maxFiles int
	workers  int
	sink     Sink // optional
}

// RunnerConfig holds the project-level knobs.
type RunnerConfig struct {
	MaxFiles int
	Workers  int
	Sink     Sink
}

// NewRunner builds a runner around an assembled pipeline.
func NewRunner(p *Pipeline, cfg RunnerConfig) *Runner {
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Runner{pipeline: p, maxFiles: cfg.MaxFiles, workers: cfg.Workers, sink: cfg.Sink}
}

// Run converts every discovered file under root and returns the aggregate
// summary plus the per-file batches, sorted by path.
func (r *Runner) Run(ctx context.Context, root string) (*types.ProjectConversionSummary, []*types.FileConversionBatch, error) {
	files, err := r.collectFiles(root)
	if err != nil {
		return nil, nil, err
	}

	summary := &types.ProjectConversionSummary{RunID: uuid.New().String()}
	var (
		mu      sync.Mutex
		batches []*types.FileConversionBatch
	)

	// Workers never return errors: per-file failures fold into the summary
	// so the remaining files keep converting.
	g := &errgroup.Group{}
	g.SetLimit(r.workers)
	for _, f := range files {
		f := f
		g.Go(func() error {
			source, err := os.ReadFile(f)
			if err != nil {
				mu.Lock()
				summary.FoldFailure(f, err)
				mu.Unlock()
				return nil
			}
			batch, err := r.pipeline.ConvertFile(ctx, f, source)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.FoldFailure(f, err)
				return nil
			}
			summary.Fold(batch)
			batches = append(batches, batch)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(batches, func(i, j int) bool { return batches[i].FilePath < batches[j].FilePath })

	if r.sink != nil {
		for _, b := range batches {
			if err := r.sink.WriteBatch(ctx, summary.RunID, b); err != nil {
				fmt.Fprintf(os.Stderr, "warning: persisting batch for %s: %v\n", b.FilePath, err)
			}
		}
		if err := r.sink.WriteSummary(ctx, summary); err != nil {
			fmt.Fprintf(os.Stderr, "warning: persisting run summary: %v\n", err)
		}
	}
	return summary, batches, nil
}

// collectFiles walks root for .cs files, skipping build output and hidden
// directories, and enforces the file cap.
func (r *Runner) collectFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		if strings.EqualFold(filepath.Ext(root), ".cs") {
			return []string{root}, nil
		}
		return nil, fmt.Errorf("%s is not a C# source file or directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "bin" || name == "obj") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(name), ".cs") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(files)
	if len(files) > r.maxFiles {
		fmt.Fprintf(os.Stderr, "warning: project has %d files; analyzing the first %d\n", len(files), r.maxFiles)
		files = files[:r.maxFiles]
	}
	return files, nil
}
