package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphshift/internal/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestWriteBatchAndSummary(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	batch := &types.FileConversionBatch{
		FilePath: "Mail.cs",
		AuthRewrite: &types.ConversionResult{
			Tier: 1, Confidence: types.ConfidenceHigh, FilePath: "Mail.cs",
			OriginalCode: "var service = new ExchangeService();", ConvertedCode: "var graphClient = ...;",
			IsValid: true,
		},
		Results: []*types.ConversionResult{
			{
				Tier: 2, Confidence: types.ConfidenceMedium, FilePath: "Mail.cs",
				OriginalCode: "a", ConvertedCode: "b", StartLine: 4, EndLine: 4,
				IsValid: false, ValidationErrors: []string{"semantic: residual identifier"},
			},
		},
	}
	require.NoError(t, db.WriteBatch(ctx, "run-1", batch))

	summary := &types.ProjectConversionSummary{
		RunID: "run-1", TotalUsages: 2, Converted: 1,
		HighConfidence: 1, MediumConfidence: 1,
		Failed: 1, ReadinessPercent: 50, FilesProcessed: 1,
	}
	require.NoError(t, db.WriteSummary(ctx, summary))

	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, 2, runs[0].TotalUsages)
	assert.Equal(t, 1, runs[0].Converted)
	assert.InDelta(t, 50.0, runs[0].ReadinessPercent, 0.001)
}

func TestWriteSummaryUpserts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	s := &types.ProjectConversionSummary{RunID: "run-9", TotalUsages: 1}
	require.NoError(t, db.WriteSummary(ctx, s))
	s.TotalUsages = 7
	s.Converted = 7
	require.NoError(t, db.WriteSummary(ctx, s))

	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 7, runs[0].TotalUsages)
}

func TestListRunsEmpty(t *testing.T) {
	db := openTestDB(t)
	runs, err := db.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
