package report

import (
	"context"
)

const FacilityUsageReport = "FacilityUsage"

// FacilityUsage reports the spaces available of every key and day at the
// requested resolution.
type FacilityUsage struct {
	deps Deps
}

func NewFacilityUsage(deps Deps) *FacilityUsage {
	return &FacilityUsage{deps: deps}
}

func (g *FacilityUsage) Name() string {
	return FacilityUsageReport
}

func (g *FacilityUsage) Generate(ctx context.Context, params Params) (*Table, error) {
	result, err := Build(ctx, g.deps, params)
	if err != nil {
		return nil, err
	}

	now := g.deps.Clock.Now()
	header := append(append([]string{}, keyColumns...), BucketHeaders(result.IntervalSeconds)...)

	rows := make([][]string, 0, len(result.Rows))
	for _, r := range result.Rows {
		cells := keyCells(r, result.Facilities[r.Key.FacilityID])
		rows = append(rows, append(cells, BucketCells(r, result.IntervalSeconds, g.deps.Location, now)...))
	}
	return &Table{Name: FacilityUsageReport, Header: header, Rows: rows}, nil
}
