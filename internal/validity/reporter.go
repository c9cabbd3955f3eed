package validity

import (
	"fmt"
	"io"
	"sync"
)

// Reporter collects violations found in warn mode.
type Reporter struct {
	mu      sync.Mutex
	reports []Report
}

// Report represents a single diagnostic entry.
type Report struct {
	Phase    ReportPhase
	RuleCode Rule
	Message  string
}

// ReportPhase marks the component where a report was generated.
type ReportPhase int

const (
	reportPhaseInvalid ReportPhase = iota
	ReportPlaces                   // place algebra
	ReportCapability               // capability summary
	ReportBorrows                  // borrow graph
	ReportTransfer                 // transfer functions
)

func (p ReportPhase) String() string {
	switch p {
	case ReportPlaces:
		return "places"
	case ReportCapability:
		return "capability"
	case ReportBorrows:
		return "borrows"
	case ReportTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("unknown-phase(%d)", p)
	}
}

// ReporterPhase binds a Reporter to a fixed phase.
type ReporterPhase struct {
	parent *Reporter
	phase  ReportPhase
}

// Phase returns a phase-bound reporter that sets the given phase for all
// reports produced through it.
func (r *Reporter) Phase(p ReportPhase) *ReporterPhase {
	return &ReporterPhase{parent: r, phase: p}
}

// Report adds a new record to the reporter.
func (r *Reporter) Report(rep Report) {
	r.mu.Lock()
	r.reports = append(r.reports, rep)
	r.mu.Unlock()
}

// Report records a new rule violation under the bound phase. An empty
// message is replaced with the rule description.
func (rp *ReporterPhase) Report(rule Rule, message string) {
	if message == "" {
		message = rule.Description()
	}
	rp.parent.Report(Report{
		Phase:    rp.phase,
		RuleCode: rule,
		Message:  message,
	})
}

// Reports returns a snapshot of all collected records.
func (r *Reporter) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// PrintSummary prints reports in a compact, human-readable form.
func PrintSummary(w io.Writer, reports []Report) {
	for _, rep := range reports {
		_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", rep.Phase, rep.RuleCode, rep.Message)
	}
}
