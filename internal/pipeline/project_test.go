package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphshift/internal/types"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestRunnerConvertsProject(t *testing.T) {
	fake := &fakeCompleter{responses: []string{goodResponse}}
	p := newTestPipeline(t, fake, 0)
	runner := NewRunner(p, RunnerConfig{Workers: 2})

	root := writeProject(t, map[string]string{
		"a.cs":         fullSource,
		"sub/b.cs":     fullSource,
		"plain.cs":     "class Plain { }",
		"readme.md":    "not source",
		"bin/built.cs": fullSource, // build output must be skipped
	})

	summary, batches, err := runner.Run(context.Background(), root)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.FilesProcessed)
	// Two files contribute an auth rewrite plus one usage each.
	assert.Equal(t, 4, summary.TotalUsages)
	assert.Equal(t, 4, summary.Converted)
	assert.Empty(t, summary.FileFailures)

	require.Len(t, batches, 3)
	assert.True(t, sort.SliceIsSorted(batches, func(i, j int) bool {
		return batches[i].FilePath < batches[j].FilePath
	}))
}

func TestRunnerMaxFilesCap(t *testing.T) {
	fake := &fakeCompleter{responses: []string{goodResponse}}
	p := newTestPipeline(t, fake, 0)
	runner := NewRunner(p, RunnerConfig{MaxFiles: 2, Workers: 1})

	files := make(map[string]string, 5)
	for i := 0; i < 5; i++ {
		files[fmt.Sprintf("f%d.cs", i)] = fullSource
	}
	root := writeProject(t, files)

	summary, batches, err := runner.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.FilesProcessed)
	assert.Len(t, batches, 2)
}

func TestRunnerSingleFile(t *testing.T) {
	fake := &fakeCompleter{responses: []string{goodResponse}}
	p := newTestPipeline(t, fake, 0)
	runner := NewRunner(p, RunnerConfig{})

	root := writeProject(t, map[string]string{"only.cs": fullSource})
	summary, batches, err := runner.Run(context.Background(), filepath.Join(root, "only.cs"))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesProcessed)
	require.Len(t, batches, 1)
	assert.NotNil(t, batches[0].AuthRewrite)
}

func TestRunnerRejectsNonSourceTarget(t *testing.T) {
	fake := &fakeCompleter{responses: []string{goodResponse}}
	p := newTestPipeline(t, fake, 0)
	runner := NewRunner(p, RunnerConfig{})

	root := writeProject(t, map[string]string{"readme.md": "text"})
	_, _, err := runner.Run(context.Background(), filepath.Join(root, "readme.md"))
	assert.Error(t, err)
}

// recordingSink captures what the runner persists.
type recordingSink struct {
	batches   []*types.FileConversionBatch
	summaries []*types.ProjectConversionSummary
}

func (s *recordingSink) WriteBatch(_ context.Context, _ string, b *types.FileConversionBatch) error {
	s.batches = append(s.batches, b)
	return nil
}

func (s *recordingSink) WriteSummary(_ context.Context, sum *types.ProjectConversionSummary) error {
	s.summaries = append(s.summaries, sum)
	return nil
}

func TestRunnerPersistsThroughSink(t *testing.T) {
	fake := &fakeCompleter{responses: []string{goodResponse}}
	p := newTestPipeline(t, fake, 0)
	sink := &recordingSink{}
	runner := NewRunner(p, RunnerConfig{Sink: sink})

	root := writeProject(t, map[string]string{"a.cs": fullSource})
	summary, _, err := runner.Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, sink.batches, 1)
	require.Len(t, sink.summaries, 1)
	assert.Equal(t, summary.RunID, sink.summaries[0].RunID)
}

func TestReadinessScan(t *testing.T) {
	fake := &fakeCompleter{responses: []string{goodResponse}}
	p := newTestPipeline(t, fake, 0)
	runner := NewRunner(p, RunnerConfig{})

	root := writeProject(t, map[string]string{
		"a.cs":     fullSource,
		"plain.cs": "class Plain { }",
	})

	report, err := runner.Readiness(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalFiles)
	assert.Equal(t, 1, report.FilesWithUsages)
	assert.Equal(t, 1, report.TotalUsages)
	assert.Equal(t, 1, report.ByTier[1])
	assert.InDelta(t, 100.0, report.ReadyPercent, 0.001)
	require.Len(t, report.Operations, 1)
	assert.Equal(t, "Find items in a folder", report.Operations[0].DisplayName)

	// Scanning never touches the backend.
	assert.Zero(t, fake.calls)
}
