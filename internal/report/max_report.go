package report

import (
	"context"

	"facility-usage-backend/internal/utilization"
)

const MaxUtilizationReport = "MaxUtilization"

// MaxUtilization reports, per key and day, the highest share of occupied
// spaces observed. Samples without a positive capacity are skipped.
type MaxUtilization struct {
	deps Deps
}

func NewMaxUtilization(deps Deps) *MaxUtilization {
	return &MaxUtilization{deps: deps}
}

func (g *MaxUtilization) Name() string {
	return MaxUtilizationReport
}

type maxRow struct {
	key Key
	max Decimal
}

func (g *MaxUtilization) Generate(ctx context.Context, params Params) (*Table, error) {
	if err := params.Validate(g.deps.MaxRangeDays); err != nil {
		return nil, err
	}

	byKey := make(map[Key]*maxRow)
	var order []*maxRow
	err := scan(ctx, g.deps, params, func(s utilization.Sample) {
		if s.Capacity <= 0 {
			return
		}
		pct := Percent(int64(s.Capacity-s.SpacesAvailable), int64(s.Capacity))
		key := Key{Key: s.Key, Date: utilization.DateOf(s.Timestamp, g.deps.Location)}
		row, ok := byKey[key]
		if !ok {
			row = &maxRow{key: key, max: pct}
			byKey[key] = row
			order = append(order, row)
			return
		}
		if pct.Cmp(row.max) > 0 {
			row.max = pct
		}
	})
	if err != nil {
		return nil, err
	}

	// Reuse Row for ordering and status overlay; Values stays empty.
	rows := make([]*Row, len(order))
	keys := make([]Key, len(order))
	for i, m := range order {
		rows[i] = &Row{Key: m.key}
		keys[i] = m.key
	}
	dec, err := decorate(ctx, g.deps, params, keys)
	if err != nil {
		return nil, err
	}
	dec.overlay.Apply(rows)
	SortRows(rows, dec.byID)

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := keyCells(r, dec.byID[r.Key.FacilityID])
		out = append(out, append(cells, byKey[r.Key].max.Round(1).String()))
	}
	return &Table{
		Name:   MaxUtilizationReport,
		Header: append(append([]string{}, keyColumns...), "MaxUtilization"),
		Rows:   out,
	}, nil
}
