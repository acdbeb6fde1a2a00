package edge

// StatRow is one line of a statistics table. Numeric fields are nil when the
// source text was not a number, which is not the same thing as zero.
type StatRow struct {
	Label         string   `json:"stat_label"`
	PlayerValue   *float64 `json:"player_value"`
	LeagueAverage *float64 `json:"league_average"`
	Percentile    *float64 `json:"percentile"`
	Tooltip       *string  `json:"tooltip"`
}

// RadarChartItem is one axis of the overview radar chart. ValueLabel is
// whatever the page put there, sometimes a number and sometimes text.
type RadarChartItem struct {
	AxisLabel  string  `json:"axis_label"`
	Value      float64 `json:"value"`
	ValueLabel any     `json:"value_label"`
}

type RadarChart struct {
	Config map[string]any   `json:"config"`
	Items  []RadarChartItem `json:"data"`
}

// SectionPayload is the result of extracting a single fragment, at most one
// slot (two for the overview) is filled.
type SectionPayload struct {
	Overview        []StatRow   `json:"overview_section"`
	SkatingSpeed    []StatRow   `json:"skating_speed_section"`
	SkatingDistance []StatRow   `json:"skating_distance_section"`
	ShotSpeed       []StatRow   `json:"shot_speed_section"`
	ShotLocation    []any       `json:"shot_location_section"`
	ZoneTime        []StatRow   `json:"zonetime_section"`
	RadarChart      *RadarChart `json:"radar_chart"`
}

// Empty reports whether no slot holds anything.
func (p SectionPayload) Empty() bool {
	return len(p.Overview) == 0 &&
		len(p.SkatingSpeed) == 0 &&
		len(p.SkatingDistance) == 0 &&
		len(p.ShotSpeed) == 0 &&
		len(p.ShotLocation) == 0 &&
		len(p.ZoneTime) == 0 &&
		p.RadarChart == nil
}

// Aggregate is everything collected for one player over one session.
type Aggregate struct {
	SectionPayload
}

// Filled lists the targets whose slot has received a non-empty value.
func (a Aggregate) Filled() []Target {
	filled := []Target{}
	for _, t := range AllTargets() {
		if a.filled(t) {
			filled = append(filled, t)
		}
	}
	return filled
}

func (a Aggregate) filled(t Target) bool {
	switch t {
	case TargetOverview:
		return len(a.Overview) > 0
	case TargetSkatingSpeed:
		return len(a.SkatingSpeed) > 0
	case TargetSkatingDistance:
		return len(a.SkatingDistance) > 0
	case TargetShotSpeed:
		return len(a.ShotSpeed) > 0
	case TargetShotLocation:
		return len(a.ShotLocation) > 0
	case TargetZoneTime:
		return len(a.ZoneTime) > 0
	}
	return false
}

// Complete reports whether every expected target has a filled slot. A
// partial result (ex. the remote closed early) is still a valid result, this
// is how callers tell the two apart.
func (a Aggregate) Complete(expected TargetSet) bool {
	for t := range expected {
		if !a.filled(t) {
			return false
		}
	}
	return true
}
