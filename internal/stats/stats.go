// Package stats implements the pluggable per-pass statistics collector:
// each optimization pass reports its id, pre/post node counts, and
// elapsed time to whatever sinks the caller attached.
package stats

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PassRecord is one pass's before/after shape, plus a RunID tying every
// record in a pipeline invocation together.
type PassRecord struct {
	RunID     uuid.UUID
	PassID    string
	PreNodes  int
	PostNodes int
	Elapsed   time.Duration
}

// NodesRemoved is PreNodes - PostNodes, clamped at zero (a pass that adds
// nodes, e.g. inversion's gamma-of-theta rebuild, reports zero here
// rather than a negative "removal").
func (r PassRecord) NodesRemoved() int {
	if r.PreNodes <= r.PostNodes {
		return 0
	}
	return r.PreNodes - r.PostNodes
}

// Collector receives PassRecords as the optimization pipeline runs each
// pass.
type Collector interface {
	Record(PassRecord) error
}

// MultiCollector fans a record out to every wrapped Collector, stopping
// at (and returning) the first error.
type MultiCollector []Collector

func (m MultiCollector) Record(r PassRecord) error {
	for _, c := range m {
		if err := c.Record(r); err != nil {
			return err
		}
	}
	return nil
}

// SliceCollector is an in-memory Collector, the kind package tests use to
// assert on exactly which passes ran and what they did.
type SliceCollector struct {
	Records []PassRecord
}

func (s *SliceCollector) Record(r PassRecord) error {
	s.Records = append(s.Records, r)
	return nil
}

// LogCollector writes one structured logrus line per pass.
type LogCollector struct {
	Logger *logrus.Logger
}

// NewLogCollector wraps a logrus.Logger, defaulting to logrus.StandardLogger
// when logger is nil.
func NewLogCollector(logger *logrus.Logger) *LogCollector {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogCollector{Logger: logger}
}

func (l *LogCollector) Record(r PassRecord) error {
	l.Logger.WithFields(logrus.Fields{
		"run_id":   r.RunID.String(),
		"pass":     r.PassID,
		"pre":      r.PreNodes,
		"post":     r.PostNodes,
		"removed":  r.NodesRemoved(),
		"elapsed":  r.Elapsed,
	}).Infof("pass %s: %s -> %s nodes (%s removed) in %s",
		r.PassID,
		humanize.Comma(int64(r.PreNodes)),
		humanize.Comma(int64(r.PostNodes)),
		humanize.Comma(int64(r.NodesRemoved())),
		r.Elapsed,
	)
	return nil
}

// FormatSummary renders a one-line human-readable summary of a
// PassRecord.
func FormatSummary(r PassRecord) string {
	return fmt.Sprintf("%s: %s nodes -> %s nodes (-%s) in %s",
		r.PassID,
		humanize.Comma(int64(r.PreNodes)),
		humanize.Comma(int64(r.PostNodes)),
		humanize.Comma(int64(r.NodesRemoved())),
		r.Elapsed,
	)
}
