package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call made against a RecorderAPI.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// RecorderAPI keeps every report in memory so tests can assert on what a
// component considered broken or suspicious.
type RecorderAPI struct {
	mu      sync.Mutex
	reports []Report
}

func (r *RecorderAPI) record(kind, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *RecorderAPI) ReportBroken(id string, params ...any) {
	r.record("broken", id, params)
}

func (r *RecorderAPI) ReportWarning(id string, params ...any) {
	r.record("warning", id, params)
}

func (r *RecorderAPI) ReportDebug(msg string, params ...any) {
	r.record("debug", msg, params)
}

func (r *RecorderAPI) ReportCount(id string, count int64) {
	r.record("count", id, []any{count})
}

// Reports returns a copy of every report of the given kind, an empty kind
// matches everything.
func (r *RecorderAPI) Reports(kind string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if kind == "" || rep.Kind == kind {
			out = append(out, rep)
		}
	}
	return out
}

// Has reports whether a report of the given kind has an id ending with suffix.
func (r *RecorderAPI) Has(kind, suffix string) bool {
	for _, rep := range r.Reports(kind) {
		if strings.HasSuffix(rep.ID, suffix) {
			return true
		}
	}
	return false
}
