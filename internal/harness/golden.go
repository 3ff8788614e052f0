package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pipesim/internal/ir"
)

// GoldenDir is where golden traces live, relative to the test's package.
const GoldenDir = "testdata/golden"

// RenderTrace serializes a result as canonical JSON lines: one line per
// trace event followed by a {"final": ...} line.
func RenderTrace(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	for i, ev := range result.Trace {
		line, err := ir.MarshalCanonical(eventMap(ev))
		if err != nil {
			return nil, fmt.Errorf("trace[%d]: %w", i, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	final, err := ir.MarshalCanonical(map[string]any{"final": result.Final})
	if err != nil {
		return nil, fmt.Errorf("final states: %w", err)
	}
	buf.Write(final)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// TraceHash returns the content hash of a rendered trace.
func TraceHash(result *Result) (string, error) {
	trace, err := RenderTrace(result)
	if err != nil {
		return "", err
	}
	return ir.Hash(ir.DomainTrace, string(trace))
}

// eventMap drops empty fields so golden lines stay short.
func eventMap(ev TraceEvent) map[string]any {
	m := map[string]any{
		"kind": ev.Kind,
		"at":   ev.At,
	}
	for k, v := range map[string]string{
		"component": ev.Component,
		"from":      ev.From,
		"to":        ev.To,
		"action":    ev.Action,
		"error":     ev.Error,
	} {
		if v != "" {
			m[k] = v
		}
	}
	if len(ev.Payload) > 0 {
		m["payload"] = ev.Payload
	}
	return m
}

// RunWithGolden executes a case and compares the trace against
// testdata/golden/{case.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, c *Case) (*Result, error) {
	t.Helper()

	result, err := Run(c)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, c.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	trace, err := RenderTrace(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, trace)
	return nil
}
