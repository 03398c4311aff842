package report

import (
	"sort"

	"github.com/ignite/audience-report/internal/domain"
)

// Sort fields accepted by BuildEmailMetrics.
const (
	SortByDeployment = "deployment"
	SortByIdentities = "identities"
	SortByClicks     = "clicks"
)

// Sort controls report row ordering.
type Sort struct {
	Field string
	Desc  bool
}

// MetricsInput carries everything needed to shape a report: the grouped
// per-identity click results, the requested ordering, and the full list of
// eligible deployments (rows are zero-filled for deployments that produced
// no clicks, so a report always accounts for every send).
type MetricsInput struct {
	Results            []domain.IdentityClicks
	Sort               Sort
	DeploymentEntities []string
}

// DeploymentMetrics is one rendered report row.
type DeploymentMetrics struct {
	DeploymentEntity string `json:"deployment_entity"`
	Identities       int    `json:"identities"`
	Clicks           int    `json:"clicks"`
}

// BuildEmailMetrics rolls the per-identity aggregation up to one row per
// deployment: how many distinct identities engaged and how many clicks they
// produced. An identity's clicks count once per deployment it clicked in;
// its summed click total is attributed to each such deployment.
func BuildEmailMetrics(in MetricsInput) []DeploymentMetrics {
	rows := make(map[string]*DeploymentMetrics, len(in.DeploymentEntities))
	for _, entity := range in.DeploymentEntities {
		if _, ok := rows[entity]; !ok {
			rows[entity] = &DeploymentMetrics{DeploymentEntity: entity}
		}
	}

	for _, result := range in.Results {
		for _, entity := range result.DeploymentEntities {
			row, ok := rows[entity]
			if !ok {
				// Clicks on a deployment outside the eligible list should
				// not occur, but tolerate them rather than dropping data.
				row = &DeploymentMetrics{DeploymentEntity: entity}
				rows[entity] = row
			}
			row.Identities++
			row.Clicks += result.Clicks
		}
	}

	out := make([]DeploymentMetrics, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sortMetrics(out, in.Sort)
	return out
}

func sortMetrics(rows []DeploymentMetrics, s Sort) {
	less := func(i, j int) bool {
		switch s.Field {
		case SortByIdentities:
			if rows[i].Identities != rows[j].Identities {
				return rows[i].Identities < rows[j].Identities
			}
		case SortByClicks:
			if rows[i].Clicks != rows[j].Clicks {
				return rows[i].Clicks < rows[j].Clicks
			}
		}
		// Deployment entity is the default and the tie-break.
		return rows[i].DeploymentEntity < rows[j].DeploymentEntity
	}
	if s.Desc {
		sort.Slice(rows, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.Slice(rows, less)
}
