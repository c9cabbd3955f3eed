package main

import (
	"fmt"
)

// DivergeKind describes how a call leaves the analyzed body for good.
type DivergeKind int

const (
	DivergeKindInvalid DivergeKind = iota

	// DivergeKindPanic unwinds.
	DivergeKindPanic

	// DivergeKindExit terminates the process normally.
	DivergeKindExit

	// DivergeKindAbort terminates the process abnormally.
	DivergeKindAbort

	// DivergeKindConfigured is set for functions named by a configuration.
	DivergeKindConfigured
)

var divergeKindValueMap = map[DivergeKind]string{
	DivergeKindPanic:      "panic",
	DivergeKindExit:       "exit",
	DivergeKindAbort:      "abort",
	DivergeKindConfigured: "configured",
}

func (k DivergeKind) String() string {
	v, ok := divergeKindValueMap[k]
	if !ok {
		return fmt.Sprintf("invalid(%d)", k)
	}

	return v
}

// MarshalText for writing values into configs.
func (k DivergeKind) MarshalText() ([]byte, error) {
	v, ok := divergeKindValueMap[k]
	if !ok {
		return nil, fmt.Errorf("invalid diverge kind %d", k)
	}

	return []byte(v), nil
}

// UnmarshalText for setting values with configs, CLI, etc.
func (k *DivergeKind) UnmarshalText(rawtext []byte) error {
	text := string(rawtext)
	for key, v := range divergeKindValueMap {
		if v == text {
			*k = key
			return nil
		}
	}

	return fmt.Errorf("unknown diverge kind %q", text)
}

// OutputFormat selects how analysis results are printed.
type OutputFormat int

const (
	OutputFormatInvalid OutputFormat = iota
	OutputFormatText
	OutputFormatJSON
)

var outputFormatValueMap = map[OutputFormat]string{
	OutputFormatText: "text",
	OutputFormatJSON: "json",
}

func (f OutputFormat) String() string {
	v, ok := outputFormatValueMap[f]
	if !ok {
		return fmt.Sprintf("invalid(%d)", f)
	}

	return v
}

// MarshalText for flag defaults.
func (f OutputFormat) MarshalText() ([]byte, error) {
	v, ok := outputFormatValueMap[f]
	if !ok {
		return nil, fmt.Errorf("invalid output format %d", f)
	}

	return []byte(v), nil
}

// UnmarshalText for setting values with configs, CLI, etc.
func (f *OutputFormat) UnmarshalText(rawtext []byte) error {
	text := string(rawtext)
	for k, v := range outputFormatValueMap {
		if v == text {
			*f = k
			return nil
		}
	}

	return fmt.Errorf("unknown output format %q", text)
}
