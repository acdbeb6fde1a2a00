package commands

import (
	"fmt"
	"io"
	"strconv"

	"edgestats-backend/internal/edge"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.SetTitle(title)
	return t
}

func formatNumber(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func renderRows(w io.Writer, title string, rows []edge.StatRow) {
	if len(rows) == 0 {
		return
	}
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Stat", "Player", "League Avg", "Percentile", "Note"})
	for _, row := range rows {
		note := ""
		if row.Tooltip != nil {
			note = *row.Tooltip
		}
		t.AppendRow(table.Row{
			row.Label,
			formatNumber(row.PlayerValue),
			formatNumber(row.LeagueAverage),
			formatNumber(row.Percentile),
			note,
		})
	}
	t.Render()
}

// renderAggregate prints every filled section of an aggregate as a table.
func renderAggregate(w io.Writer, player string, agg edge.Aggregate) {
	renderRows(w, fmt.Sprintf("%s: overview", player), agg.Overview)

	if agg.RadarChart != nil && len(agg.RadarChart.Items) > 0 {
		t := newTable(w, fmt.Sprintf("%s: radar chart", player))
		t.AppendHeader(table.Row{"Axis", "Value", "Label"})
		for _, item := range agg.RadarChart.Items {
			t.AppendRow(table.Row{item.AxisLabel, formatNumber(&item.Value), item.ValueLabel})
		}
		t.Render()
	}

	renderRows(w, fmt.Sprintf("%s: skating speed", player), agg.SkatingSpeed)
	renderRows(w, fmt.Sprintf("%s: skating distance", player), agg.SkatingDistance)
	renderRows(w, fmt.Sprintf("%s: shot speed", player), agg.ShotSpeed)

	if len(agg.ShotLocation) > 0 {
		t := newTable(w, fmt.Sprintf("%s: shot location", player))
		t.AppendHeader(table.Row{"#", "Entry"})
		for i, entry := range agg.ShotLocation {
			encoded, err := json.Marshal(entry)
			if err != nil {
				encoded = []byte(fmt.Sprint(entry))
			}
			t.AppendRow(table.Row{i + 1, string(encoded)})
		}
		t.Render()
	}

	renderRows(w, fmt.Sprintf("%s: zone time", player), agg.ZoneTime)
}

func writeJson(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(encoded, '\n'))
	return err
}
