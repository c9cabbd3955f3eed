package validity

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrInvariant is wrapped by errors caused by failed fatal checks.
	ErrInvariant = errors.New("invariant violation")

	// ErrUnsupported is wrapped by errors caused by unsupported input shapes.
	ErrUnsupported = errors.New("unsupported input")
)

// Mode selects what a failed check does.
type Mode int

const (
	modeInvalid Mode = iota
	ModeOff
	ModeWarn
	ModeFatal
)

var modeValueMap = map[Mode]string{
	ModeOff:   "off",
	ModeWarn:  "warn",
	ModeFatal: "fatal",
}

func (m Mode) String() string {
	v, ok := modeValueMap[m]
	if !ok {
		return fmt.Sprintf("invalid(%d)", m)
	}

	return v
}

// MarshalText for writing values into configs.
func (m Mode) MarshalText() ([]byte, error) {
	v, ok := modeValueMap[m]
	if !ok {
		return nil, fmt.Errorf("invalid validity mode %d", m)
	}

	return []byte(v), nil
}

// UnmarshalText for setting values with configs, CLI, etc.
func (m *Mode) UnmarshalText(rawtext []byte) error {
	text := string(rawtext)
	for k, v := range modeValueMap {
		if v == text {
			*m = k
			return nil
		}
	}

	return fmt.Errorf("unknown validity mode %q", text)
}

// Violation is the panic value of a failed fatal check.
type Violation struct {
	Rule    Rule
	Phase   ReportPhase
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s [%s]: %s", v.Rule, v.Phase, v.Message)
}

// Unwrap makes violations match ErrInvariant.
func (v *Violation) Unwrap() error {
	return ErrInvariant
}

// Unsupported is the panic value raised for input shapes the model does not
// cover.
type Unsupported struct {
	What string
}

func (u *Unsupported) Error() string {
	return ErrUnsupported.Error() + ": " + u.What
}

// Unwrap makes unsupported stops match ErrUnsupported.
func (u *Unsupported) Unwrap() error {
	return ErrUnsupported
}

// Unimplemented stops the analysis on an unsupported input shape.
func Unimplemented(format string, a ...any) {
	panic(&Unsupported{What: fmt.Sprintf(format, a...)})
}

// Recover converts a recovered panic value of this package into an error.
// Other values are re-panicked.
func Recover(r any) error {
	switch v := r.(type) {
	case nil:
		return nil
	case *Violation:
		return v
	case *Unsupported:
		return v
	default:
		panic(r)
	}
}

// Checker evaluates consistency checks in the configured mode.
type Checker struct {
	mode     Mode
	logger   *slog.Logger
	reporter *Reporter
}

// NewChecker creates a checker. A nil logger means slog.Default().
func NewChecker(mode Mode, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Checker{
		mode:     mode,
		logger:   logger.With(slog.String("component", "validity")),
		reporter: &Reporter{},
	}
}

// Mode returns the checking mode.
func (c *Checker) Mode() Mode {
	if c == nil {
		return ModeOff
	}

	return c.mode
}

// Reporter returns the reporter collecting warn mode violations.
func (c *Checker) Reporter() *Reporter {
	return c.reporter
}

// Phase returns a checker bound to a phase.
func (c *Checker) Phase(p ReportPhase) *PhaseChecker {
	if c == nil {
		return nil
	}

	return &PhaseChecker{
		parent: c,
		phase:  p,
		rep:    c.reporter.Phase(p),
	}
}

// PhaseChecker is a checker bound to a phase. A nil PhaseChecker has checks
// disabled.
type PhaseChecker struct {
	parent *Checker
	phase  ReportPhase
	rep    *ReporterPhase
}

// Enabled reports whether checks are evaluated at all.
func (c *PhaseChecker) Enabled() bool {
	return c != nil && c.parent.mode != ModeOff && c.parent.mode != modeInvalid
}

// Assert checks the condition. It returns true if the condition holds or
// checks are disabled. In warn mode a failed check is logged and reported,
// in fatal mode it panics with *Violation.
func (c *PhaseChecker) Assert(cond bool, rule Rule, format string, a ...any) bool {
	if cond || !c.Enabled() {
		return true
	}

	msg := fmt.Sprintf(format, a...)
	switch c.parent.mode {
	case ModeWarn:
		c.parent.logger.Warn(
			"consistency check failed",
			slog.String("rule", rule.String()),
			slog.String("phase", c.phase.String()),
			slog.String("message", msg),
		)
		c.rep.Report(rule, msg)
		return false
	default:
		c.parent.logger.Error(
			"consistency check failed",
			slog.String("rule", rule.String()),
			slog.String("phase", c.phase.String()),
			slog.String("message", msg),
		)
		panic(&Violation{Rule: rule, Phase: c.phase, Message: msg})
	}
}
