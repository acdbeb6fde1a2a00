package edge

import (
	"errors"
	"fmt"

	"edgestats-backend/lib/htmlutil"
	"edgestats-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// ErrExtractionDegraded is reported (never returned) when a fragment does
// not contain the structure its target is expected to have.
var ErrExtractionDegraded = errors.New("extraction degraded")

const (
	report_extract_unknown_target = "extract.unknown-target"
	report_extract_parse          = "extract.parse"
	report_extract_table          = "extract.table"
	report_extract_radar_chart    = "extract.radar-chart"
	report_extract_shot_chart     = "extract.shot-chart"
	report_extract_zone_time      = "extract.zone-time"
)

const (
	statsTableSelector    = "table.table-hover"
	zoneTimeTableSelector = "div.col-lg-6.col-md-6 div.table-responsive table.table-hover"
	radarChartSelector    = "sl-webc-radar-chart"
	radarChartId          = "overview-radarchart"
	shotChartSelector     = "sl-webc-shot-chart"
)

type handler func(e Extractor, doc *goquery.Document) SectionPayload

// every known target has exactly one entry, Extract handles the rest.
var handlers = map[Target]handler{
	TargetOverview: func(e Extractor, doc *goquery.Document) SectionPayload {
		return SectionPayload{
			Overview:   e.statsTable(doc, tableOptions{columns: 4}),
			RadarChart: e.radarChart(doc),
		}
	},
	TargetSkatingSpeed: func(e Extractor, doc *goquery.Document) SectionPayload {
		return SectionPayload{SkatingSpeed: e.statsTable(doc, tableOptions{columns: 4})}
	},
	TargetSkatingDistance: func(e Extractor, doc *goquery.Document) SectionPayload {
		return SectionPayload{SkatingDistance: e.statsTable(doc, tableOptions{columns: 4})}
	},
	TargetShotSpeed: func(e Extractor, doc *goquery.Document) SectionPayload {
		return SectionPayload{ShotSpeed: e.statsTable(doc, tableOptions{columns: 4, strictPercentile: true})}
	},
	TargetShotLocation: func(e Extractor, doc *goquery.Document) SectionPayload {
		return SectionPayload{ShotLocation: e.shotLocation(doc)}
	},
	TargetZoneTime: func(e Extractor, doc *goquery.Document) SectionPayload {
		return SectionPayload{ZoneTime: e.zoneTime(doc)}
	},
}

// Extractor turns fragments into section payloads. It holds no state besides
// where to report to, so one value may be shared by any number of sessions.
type Extractor struct {
	tel telemetry.API
}

func NewExtractor(tel telemetry.API) Extractor {
	return Extractor{tel: telemetry.NewScopedAPI("edge", tel)}
}

// Extract parses markup according to target. It never fails: markup that
// doesn't look the way it should produces an empty payload and a warning.
func (e Extractor) Extract(markup string, target Target) SectionPayload {
	h, ok := handlers[target]
	if !ok {
		e.tel.ReportWarning(report_extract_unknown_target, target.String(), len(markup))
		return SectionPayload{}
	}

	doc, err := htmlutil.Parse(markup)
	if err != nil {
		e.tel.ReportWarning(
			report_extract_parse,
			fmt.Errorf("%w: parse %s: %w", ErrExtractionDegraded, target, err),
		)
		return SectionPayload{}
	}

	payload := h(e, doc)
	e.tel.ReportDebug("extracted fragment", target.String(), !payload.Empty())
	return payload
}

type tableOptions struct {
	columns int
	// percentile cells on some sections are plain numbers and must not be
	// cleaned up before parsing.
	strictPercentile bool
}

// findStatsTable prefers the styled stats table but settles for any table.
func findStatsTable(doc *goquery.Document) *goquery.Selection {
	table := doc.Find(statsTableSelector).First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	return table
}

func (e Extractor) statsTable(doc *goquery.Document, opts tableOptions) []StatRow {
	table := findStatsTable(doc)
	if table.Length() == 0 {
		e.tel.ReportWarning(report_extract_table, fmt.Errorf("%w: no table", ErrExtractionDegraded))
		return nil
	}
	return e.tableRows(table, opts)
}

func (e Extractor) tableRows(table *goquery.Selection, opts tableOptions) []StatRow {
	body := table.Find("tbody").First()
	if body.Length() == 0 {
		e.tel.ReportWarning(report_extract_table, fmt.Errorf("%w: no tbody", ErrExtractionDegraded))
		return nil
	}

	var rows []StatRow
	body.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td, th")
		if cells.Length() < opts.columns {
			e.tel.ReportDebug("row skipped, not enough cells", cells.Length(), opts.columns)
			return
		}

		valueCell := cells.Eq(1)
		row := StatRow{
			Label:       htmlutil.SelectionText(cells.Eq(0)),
			PlayerValue: ParseDecimal(htmlutil.SelectionText(valueCell)),
		}
		if opts.columns >= 4 {
			row.LeagueAverage = ParseDecimal(htmlutil.SelectionText(cells.Eq(2)))
			percentile := htmlutil.SelectionText(cells.Eq(3))
			if opts.strictPercentile {
				row.Percentile = ParseDecimalStrict(percentile)
			} else {
				row.Percentile = ParseDecimal(percentile)
			}
			// only the leading span of the value cell carries the tooltip
			if tooltip, ok := valueCell.Find("span").First().Attr("data-tooltip"); ok {
				row.Tooltip = &tooltip
			}
		}
		rows = append(rows, row)
	})

	if len(rows) == 0 {
		e.tel.ReportWarning(report_extract_table, fmt.Errorf("%w: no usable rows", ErrExtractionDegraded))
	}
	return rows
}

// chartJson reads the embedded json of a chart element, the attribute is
// sometimes encoded twice so it gets one more round of unescaping.
func chartJson(el *goquery.Selection) (gjson.Result, bool, error) {
	raw, ok := el.Attr("data-json")
	if !ok {
		return gjson.Result{}, false, nil
	}
	text := htmlutil.Unescape(raw)
	if !gjson.Valid(text) {
		return gjson.Result{}, true, fmt.Errorf("invalid json in data-json (%d bytes)", len(text))
	}
	parsed := gjson.Parse(text)
	if !parsed.IsObject() {
		return gjson.Result{}, true, fmt.Errorf("data-json is not an object")
	}
	return parsed, true, nil
}

func (e Extractor) radarChart(doc *goquery.Document) *RadarChart {
	el := doc.Find(fmt.Sprintf("%s#%s", radarChartSelector, radarChartId)).First()
	if el.Length() == 0 {
		el = doc.Find(radarChartSelector).First()
	}
	if el.Length() == 0 {
		return nil
	}

	parsed, found, err := chartJson(el)
	if !found {
		return nil
	}
	if err != nil {
		e.tel.ReportWarning(report_extract_radar_chart, fmt.Errorf("%w: %w", ErrExtractionDegraded, err))
		return nil
	}

	series := parsed.Get("chartData").Array()
	if len(series) == 0 {
		return nil
	}

	config, ok := parsed.Get("config").Value().(map[string]any)
	if !ok {
		config = map[string]any{}
	}
	chart := &RadarChart{
		Config: config,
		Items:  []RadarChartItem{},
	}
	for _, item := range series[0].Get("data").Array() {
		var label any = ""
		if v := item.Get("valueLabel"); v.Exists() {
			label = v.Value()
		}
		chart.Items = append(chart.Items, RadarChartItem{
			AxisLabel:  item.Get("axisLabel").String(),
			Value:      item.Get("value").Float(),
			ValueLabel: label,
		})
	}
	return chart
}

// shotLocation returns the chart series as-is when the page embeds them and
// falls back to the stats table otherwise.
func (e Extractor) shotLocation(doc *goquery.Document) []any {
	el := doc.Find(shotChartSelector).First()
	if el.Length() > 0 {
		parsed, found, err := chartJson(el)
		switch {
		case found && err == nil:
			series, ok := parsed.Get("chartData").Value().([]any)
			if !ok {
				return nil
			}
			return series
		case err != nil:
			e.tel.ReportWarning(report_extract_shot_chart, fmt.Errorf("%w: %w", ErrExtractionDegraded, err))
		}
	}

	rows := e.statsTable(doc, tableOptions{columns: 4})
	if len(rows) == 0 {
		return nil
	}
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

func (e Extractor) zoneTime(doc *goquery.Document) []StatRow {
	table := doc.Find(zoneTimeTableSelector).First()
	if table.Length() == 0 {
		e.tel.ReportWarning(
			report_extract_zone_time,
			fmt.Errorf("%w: no table matching %q", ErrExtractionDegraded, zoneTimeTableSelector),
		)
		return nil
	}
	return e.tableRows(table, tableOptions{columns: 2})
}
