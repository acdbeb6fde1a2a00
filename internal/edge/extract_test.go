package edge

import (
	"testing"

	"edgestats-backend/lib/telemetry"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() (Extractor, *telemetry.RecorderAPI) {
	rec := &telemetry.RecorderAPI{}
	return NewExtractor(rec), rec
}

const overviewFragment = `
<div id="overview-section-content">
	<table>
		<tr>
			<td>Top Skating Speed (mph)</td>
			<th><span data-tooltip="11/14/2024 @ OTT">22.91</span></th>
			<th>22.09</th>
			<th>84</th>
		</tr>
	</table>
	<sl-webc-radar-chart data-json='{
		"config":{"levels":4,"maxValue":100},
		"chartData":[{"data":[{
			"axisLabel":"Top Skating Speed (mph)",
			"value":84,
			"valueLabel":84
		}]}]
	}'></sl-webc-radar-chart>
</div>`

func TestExtractOverview(t *testing.T) {
	e, _ := newTestExtractor()
	payload := e.Extract(overviewFragment, TargetOverview)

	require.Len(t, payload.Overview, 1)
	row := payload.Overview[0]
	require.Equal(t, "Top Skating Speed (mph)", row.Label)
	require.Equal(t, ptr(22.91), row.PlayerValue)
	require.Equal(t, ptr(22.09), row.LeagueAverage)
	require.Equal(t, ptr(84.0), row.Percentile)
	require.Equal(t, ptr("11/14/2024 @ OTT"), row.Tooltip)

	require.NotNil(t, payload.RadarChart)
	require.Equal(t, 4.0, payload.RadarChart.Config["levels"])
	require.Equal(t, 100.0, payload.RadarChart.Config["maxValue"])
	require.Len(t, payload.RadarChart.Items, 1)
	require.Equal(t, "Top Skating Speed (mph)", payload.RadarChart.Items[0].AxisLabel)
	require.Equal(t, 84.0, payload.RadarChart.Items[0].Value)
	require.Equal(t, 84.0, payload.RadarChart.Items[0].ValueLabel)
}

func TestExtractTooltipLeadingSpan(t *testing.T) {
	e, _ := newTestExtractor()
	payload := e.Extract(`<table><tbody>
		<tr><td>Goals</td><td><span>12</span><span data-tooltip="ignored">*</span></td><td>9</td><td>70</td></tr>
		<tr><td>Assists</td><td><span data-tooltip="10/02/2024 @ BOS">20</span></td><td>15</td><td>81</td></tr>
	</tbody></table>`, TargetSkatingSpeed)

	require.Len(t, payload.SkatingSpeed, 2)
	require.Nil(t, payload.SkatingSpeed[0].Tooltip)
	require.Equal(t, ptr("10/02/2024 @ BOS"), payload.SkatingSpeed[1].Tooltip)
}

func TestExtractNonFiniteCells(t *testing.T) {
	e, _ := newTestExtractor()
	payload := e.Extract(`<table class="table-hover"><tbody>
		<tr><td>Top Speed (mph)</td><td>NaN</td><td>Inf</td><td>-infinity</td></tr>
	</tbody></table>`, TargetSkatingSpeed)

	require.Equal(t, []StatRow{{Label: "Top Speed (mph)"}}, payload.SkatingSpeed)

	agg := Merge(&Aggregate{}, payload)
	_, err := json.Marshal(agg)
	require.NoError(t, err)
}

func TestExtractOverviewStyledTable(t *testing.T) {
	e, _ := newTestExtractor()
	payload := e.Extract(`
		<table class="table"><tbody><tr><td>Decoy</td><td>1</td><td>1</td><td>1</td></tr></tbody></table>
		<div class="table-responsive">
			<table class="table table-hover">
				<thead><tr><th>Stat</th><th>Player</th><th>League Avg</th><th>Percentile</th></tr></thead>
				<tbody>
					<tr><td>Shots on Goal</td><td>100</td><td>50</td><td>80%</td></tr>
					<tr><td>Short</td><td>1</td></tr>
					<tr><td>Goals</td><td>--</td><td>1,234</td><td>N/A</td></tr>
				</tbody>
			</table>
		</div>
		<sl-webc-radar-chart id="overview-radarchart" data-json="{&quot;config&quot;:{&quot;levels&quot;:5},&quot;chartData&quot;:[{&quot;data&quot;:[{&quot;axisLabel&quot;:&quot;Shots&quot;,&quot;value&quot;:&quot;71&quot;,&quot;valueLabel&quot;:&quot;71st&quot;}]}]}"></sl-webc-radar-chart>`,
		TargetOverview,
	)

	require.Equal(t, []StatRow{
		{Label: "Shots on Goal", PlayerValue: ptr(100.0), LeagueAverage: ptr(50.0), Percentile: ptr(80.0)},
		{Label: "Goals", LeagueAverage: ptr(1234.0)},
	}, payload.Overview)

	require.NotNil(t, payload.RadarChart)
	require.Equal(t, []RadarChartItem{{AxisLabel: "Shots", Value: 71, ValueLabel: "71st"}}, payload.RadarChart.Items)
}

func TestExtractRadarChartAbsent(t *testing.T) {
	table := []struct {
		name   string
		markup string
	}{
		{name: "no element", markup: `<div></div>`},
		{name: "no attribute", markup: `<sl-webc-radar-chart></sl-webc-radar-chart>`},
		{name: "invalid json", markup: `<sl-webc-radar-chart data-json='{"config":'></sl-webc-radar-chart>`},
		{name: "no series", markup: `<sl-webc-radar-chart data-json='{"config":{},"chartData":[]}'></sl-webc-radar-chart>`},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			e, _ := newTestExtractor()
			payload := e.Extract(row.markup, TargetOverview)
			require.Nil(t, payload.RadarChart)
			require.Empty(t, payload.Overview)
		})
	}
}

func TestExtractShotSpeedStrictPercentile(t *testing.T) {
	e, _ := newTestExtractor()
	payload := e.Extract(`
		<table class="table-hover"><tbody>
			<tr><td>Top Shot Speed (mph)</td><td>98.3</td><td>1,234</td><td>84</td></tr>
			<tr><td>Avg Shot Speed (mph)</td><td>80%</td><td>70</td><td>84%</td></tr>
		</tbody></table>`,
		TargetShotSpeed,
	)

	require.Equal(t, []StatRow{
		{Label: "Top Shot Speed (mph)", PlayerValue: ptr(98.3), LeagueAverage: ptr(1234.0), Percentile: ptr(84.0)},
		{Label: "Avg Shot Speed (mph)", PlayerValue: ptr(80.0), LeagueAverage: ptr(70.0)},
	}, payload.ShotSpeed)
	require.Empty(t, payload.Overview)
}

func TestExtractSkatingSections(t *testing.T) {
	markup := `<table class="table table-hover"><tbody>
		<tr><td>Bursts Over 20 mph</td><td>12</td><td>10</td><td>61%</td></tr>
	</tbody></table>`
	expected := []StatRow{
		{Label: "Bursts Over 20 mph", PlayerValue: ptr(12.0), LeagueAverage: ptr(10.0), Percentile: ptr(61.0)},
	}

	e, _ := newTestExtractor()
	require.Equal(t, expected, e.Extract(markup, TargetSkatingSpeed).SkatingSpeed)
	require.Equal(t, expected, e.Extract(markup, TargetSkatingDistance).SkatingDistance)
}

func TestExtractShotLocation(t *testing.T) {
	table := []struct {
		name     string
		markup   string
		expected []any
	}{
		{
			name:   "chart",
			markup: `<sl-webc-shot-chart data-json='{"chartData":[{"area":"slot","shots":12}]}'></sl-webc-shot-chart>`,
			expected: []any{
				map[string]any{"area": "slot", "shots": 12.0},
			},
		},
		{
			name: "invalid chart falls back to table",
			markup: `<sl-webc-shot-chart data-json='{broken'></sl-webc-shot-chart>
				<table class="table-hover"><tbody><tr><td>Slot</td><td>12</td><td>9</td><td>70</td></tr></tbody></table>`,
			expected: []any{
				StatRow{Label: "Slot", PlayerValue: ptr(12.0), LeagueAverage: ptr(9.0), Percentile: ptr(70.0)},
			},
		},
		{
			name:   "missing chart falls back to table",
			markup: `<table class="table-hover"><tbody><tr><td>Slot</td><td>12</td><td>9</td><td>70</td></tr></tbody></table>`,
			expected: []any{
				StatRow{Label: "Slot", PlayerValue: ptr(12.0), LeagueAverage: ptr(9.0), Percentile: ptr(70.0)},
			},
		},
		{
			name:     "nothing",
			markup:   `<p>loading</p>`,
			expected: nil,
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			e, _ := newTestExtractor()
			require.Equal(t, row.expected, e.Extract(row.markup, TargetShotLocation).ShotLocation)
		})
	}
}

func TestExtractZoneTime(t *testing.T) {
	e, rec := newTestExtractor()
	payload := e.Extract(`
		<div class="row">
			<div class="col-lg-6 col-md-6">
				<div class="table-responsive">
					<table class="table table-hover"><tbody>
						<tr><td>Offensive Zone</td><td>49.8%</td><td>41.0%</td></tr>
						<tr><td>Neutral Zone</td><td>17.1%</td></tr>
					</tbody></table>
				</div>
			</div>
			<div class="col-lg-6 col-md-6"><p>chart</p></div>
		</div>`,
		TargetZoneTime,
	)

	require.Equal(t, []StatRow{
		{Label: "Offensive Zone", PlayerValue: ptr(49.8)},
		{Label: "Neutral Zone", PlayerValue: ptr(17.1)},
	}, payload.ZoneTime)
	require.Empty(t, rec.Reports("warning"))

	payload = e.Extract(`<table class="table-hover"><tbody><tr><td>a</td><td>1</td></tr></tbody></table>`, TargetZoneTime)
	require.True(t, payload.Empty())
	require.True(t, rec.Has("warning", report_extract_zone_time))
}

func TestExtractUnknownTarget(t *testing.T) {
	e, rec := newTestExtractor()
	payload := e.Extract(overviewFragment, ParseTarget("#profile-playercard"))
	require.True(t, payload.Empty())
	require.True(t, rec.Has("warning", report_extract_unknown_target))
}

func TestExtractDegraded(t *testing.T) {
	for _, target := range AllTargets() {
		e, rec := newTestExtractor()
		payload := e.Extract(`<<not html at all`, target)
		require.True(t, payload.Empty(), target.String())
		require.NotEmpty(t, rec.Reports("warning"), target.String())
	}
}
