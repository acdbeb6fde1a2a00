package edge

import (
	"strings"
)

// Target names the page region a fragment renders into.
type Target int

const (
	TargetUnknown Target = iota
	TargetOverview
	TargetSkatingSpeed
	TargetSkatingDistance
	TargetShotSpeed
	TargetShotLocation
	TargetZoneTime
)

type targetInfo struct {
	selector string
	section  string
}

var targetTable = map[Target]targetInfo{
	TargetOverview:        {selector: "#overview-section-content", section: "overview"},
	TargetSkatingSpeed:    {selector: "#skatingspeed-section-content", section: "skatingspeed"},
	TargetSkatingDistance: {selector: "#skatingdistance-section-content", section: "skatingdistance"},
	TargetShotSpeed:       {selector: "#shotspeed-section-content", section: "shotspeed"},
	TargetShotLocation:    {selector: "#shotlocation-section-content", section: "shotlocation"},
	TargetZoneTime:        {selector: "#zonetime-section-content", section: "zonetime"},
}

// AllTargets lists every known target in the order their requests are sent.
func AllTargets() []Target {
	return []Target{
		TargetOverview,
		TargetSkatingSpeed,
		TargetSkatingDistance,
		TargetShotSpeed,
		TargetShotLocation,
		TargetZoneTime,
	}
}

// ParseTarget maps the wire selector (ex. "#overview-section-content") or the
// bare section name (ex. "overview") to a Target. Anything else is TargetUnknown.
func ParseTarget(s string) Target {
	s = strings.TrimSpace(s)
	for t, info := range targetTable {
		if s == info.selector || s == info.section {
			return t
		}
	}
	return TargetUnknown
}

// ParseSelector maps only the exact wire selector to a Target, section names
// and anything else are TargetUnknown.
func ParseSelector(s string) Target {
	for t, info := range targetTable {
		if s == info.selector {
			return t
		}
	}
	return TargetUnknown
}

// Selector is the string the server uses to address the target.
func (t Target) Selector() string {
	return targetTable[t].selector
}

// Section is the section name used in load requests.
func (t Target) Section() string {
	return targetTable[t].section
}

func (t Target) Known() bool {
	_, ok := targetTable[t]
	return ok
}

func (t Target) String() string {
	if !t.Known() {
		return "unknown"
	}
	return t.Section()
}

func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.Section()), nil
}

func (t *Target) UnmarshalText(text []byte) error {
	*t = ParseTarget(string(text))
	return nil
}

// TargetSet is a set of targets, the zero value is not usable, use NewTargetSet.
type TargetSet map[Target]struct{}

func NewTargetSet(targets ...Target) TargetSet {
	set := make(TargetSet, len(targets))
	for _, t := range targets {
		set.Add(t)
	}
	return set
}

func (s TargetSet) Add(t Target) {
	s[t] = struct{}{}
}

func (s TargetSet) Has(t Target) bool {
	_, ok := s[t]
	return ok
}

// Superset reports whether every member of other is in s.
func (s TargetSet) Superset(other TargetSet) bool {
	for t := range other {
		if !s.Has(t) {
			return false
		}
	}
	return true
}

// Slice returns the members of the set in request order.
func (s TargetSet) Slice() []Target {
	out := []Target{}
	for _, t := range AllTargets() {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}
