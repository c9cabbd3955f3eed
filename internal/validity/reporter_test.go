package validity

import (
	"bytes"
	"sync"
	"testing"
)

func TestReporter_ReportPhases(t *testing.T) {
	tests := []struct {
		name    string
		phase   ReportPhase
		rule    Rule
		message string
		want    string
	}{
		{
			name:    "places-phase expand",
			phase:   ReportPlaces,
			rule:    PCG001ExpandNotPrefix,
			message: "_1.0 is not a prefix of _2",
			want:    "_1.0 is not a prefix of _2",
		},
		{
			name:    "capability-phase missing",
			phase:   ReportCapability,
			rule:    PCG005MissingCapability,
			message: "",
			want:    PCG005MissingCapability.Description(),
		},
		{
			name:    "borrows-phase type mismatch",
			phase:   ReportBorrows,
			rule:    PCG010BorrowTypeMismatch,
			message: "i32 vs u8",
			want:    "i32 vs u8",
		},
	}

	var r Reporter

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.Phase(tt.phase).Report(tt.rule, tt.message)
		})
	}

	reps := r.Reports()
	if len(reps) != len(tests) {
		t.Fatalf("expected %d reports, got %d", len(tests), len(reps))
	}

	for i, rep := range reps {
		want := tests[i]
		if rep.Phase != want.phase {
			t.Errorf("[%s] phase mismatch: got %v, want %v", want.name, rep.Phase, want.phase)
		}
		if rep.RuleCode != want.rule {
			t.Errorf("[%s] rule mismatch: got %v, want %v", want.name, rep.RuleCode, want.rule)
		}
		if rep.Message != want.want {
			t.Errorf("[%s] message mismatch: got %q, want %q", want.name, rep.Message, want.want)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	var r Reporter
	r.Phase(ReportTransfer).Report(PCG005MissingCapability, "_1 is not readable")
	r.Phase(ReportPlaces).Report(PCG001ExpandNotPrefix, "_1.0 is not a prefix of _2")

	var buf bytes.Buffer
	PrintSummary(&buf, r.Reports())
	want := "[transfer] PCG005: MissingCapability: _1 is not readable\n" +
		"[places] PCG001: ExpandNotPrefix: _1.0 is not a prefix of _2\n"
	if got := buf.String(); got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}

	buf.Reset()
	PrintSummary(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("no output expected without reports, got %q", buf.String())
	}
}

func TestReporter_ConcurrencySafety(t *testing.T) {
	const n = 500
	var (
		r  Reporter
		wg sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Report(Report{
				Phase:    ReportTransfer,
				RuleCode: PCG005MissingCapability,
				Message:  "parallel add",
			})
		}()
	}
	wg.Wait()

	reps := r.Reports()
	if len(reps) != n {
		t.Fatalf("expected %d reports, got %d", n, len(reps))
	}
	reps[0].Message = "changed"
	reps2 := r.Reports()
	if reps2[0].Message == "changed" {
		t.Fatalf("Reports() returned shared slice, expected copy")
	}
}
