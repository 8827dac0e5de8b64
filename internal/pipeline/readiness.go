package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"

	"graphshift/internal/types"
)

// OperationCount aggregates the usages of one roadmap operation across a
// project.
type OperationCount struct {
	QualifiedName string             `json:"qualifiedName"`
	DisplayName   string             `json:"displayName"`
	Tier          int                `json:"tier"`
	Status        types.TargetStatus `json:"status"`
	Count         int                `json:"count"`
}

// ReadinessReport is the backend-free assessment of a project: how much of
// its EWS surface the roadmap can migrate, and at which tier.
type ReadinessReport struct {
	TotalFiles      int                `json:"totalFiles"`
	FilesWithUsages int                `json:"filesWithUsages"`
	TotalUsages     int                `json:"totalUsages"`
	ByTier          map[int]int        `json:"byTier"`
	ByStatus        map[string]int     `json:"byStatus"`
	Unmapped        int                `json:"unmapped"`
	ReadyPercent    float64            `json:"readyPercent"`
	Operations      []OperationCount   `json:"operations"`
	FileFailures    []types.FileFailure `json:"fileFailures,omitempty"`
}

// Readiness scans the project without calling any backend: it locates every
// EWS usage, resolves it against the roadmap, and reports the migratable
// share.
func (r *Runner) Readiness(ctx context.Context, root string) (*ReadinessReport, error) {
	files, err := r.collectFiles(root)
	if err != nil {
		return nil, err
	}

	report := &ReadinessReport{
		TotalFiles: len(files),
		ByTier:     make(map[int]int),
		ByStatus:   make(map[string]int),
	}
	perOp := make(map[string]*OperationCount)

	for _, f := range files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		source, err := os.ReadFile(f)
		if err != nil {
			report.FileFailures = append(report.FileFailures, types.FileFailure{FilePath: f, Error: err.Error()})
			continue
		}
		sites, err := r.pipeline.analyzer.LocateUsages(ctx, f, source, r.pipeline.methods)
		if err != nil {
			report.FileFailures = append(report.FileFailures, types.FileFailure{FilePath: f, Error: err.Error()})
			continue
		}
		if len(sites) == 0 {
			continue
		}
		report.FilesWithUsages++

		for _, site := range sites {
			report.TotalUsages++
			entry, ok := r.pipeline.kb.Resolve(site)
			if !ok {
				report.Unmapped++
				continue
			}
			report.ByTier[entry.Tier]++
			report.ByStatus[string(entry.Status)]++

			op, exists := perOp[entry.QualifiedName]
			if !exists {
				op = &OperationCount{
					QualifiedName: entry.QualifiedName,
					DisplayName:   entry.DisplayName,
					Tier:          entry.Tier,
					Status:        entry.Status,
				}
				perOp[entry.QualifiedName] = op
			}
			op.Count++
		}
	}

	for _, op := range perOp {
		report.Operations = append(report.Operations, *op)
	}
	sort.Slice(report.Operations, func(i, j int) bool {
		if report.Operations[i].Count != report.Operations[j].Count {
			return report.Operations[i].Count > report.Operations[j].Count
		}
		return report.Operations[i].QualifiedName < report.Operations[j].QualifiedName
	})

	if report.TotalUsages > 0 {
		ready := 0
		for _, op := range report.Operations {
			if !op.Status.IsGap() {
				ready += op.Count
			}
		}
		report.ReadyPercent = float64(ready) / float64(report.TotalUsages) * 100
	}
	return report, nil
}

// String renders the one-line headline used by log output.
func (r *ReadinessReport) String() string {
	return fmt.Sprintf("%d usages in %d files, %.1f%% migratable", r.TotalUsages, r.FilesWithUsages, r.ReadyPercent)
}
