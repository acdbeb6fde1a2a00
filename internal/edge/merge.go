package edge

// Merge copies every non-empty slot of p into agg and returns agg. Empty
// slots never erase what an earlier fragment delivered, merging the same
// payload twice is the same as merging it once.
func Merge(agg *Aggregate, p SectionPayload) *Aggregate {
	if len(p.Overview) > 0 {
		agg.Overview = p.Overview
	}
	if len(p.SkatingSpeed) > 0 {
		agg.SkatingSpeed = p.SkatingSpeed
	}
	if len(p.SkatingDistance) > 0 {
		agg.SkatingDistance = p.SkatingDistance
	}
	if len(p.ShotSpeed) > 0 {
		agg.ShotSpeed = p.ShotSpeed
	}
	if len(p.ShotLocation) > 0 {
		agg.ShotLocation = p.ShotLocation
	}
	if len(p.ZoneTime) > 0 {
		agg.ZoneTime = p.ZoneTime
	}
	if p.RadarChart != nil {
		agg.RadarChart = p.RadarChart
	}
	return agg
}
