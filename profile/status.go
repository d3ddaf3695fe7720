// Package profile implements the PTS MMI proxies for the L2CAP, OPP, SDP
// and SM profiles.
package profile

import (
	"github.com/bt-conformance/ptsproxy/api/mmi"
	"github.com/puzpuzpuz/xsync/v3"
)

// StatusMap records per-test outcomes so a later prompt in the same test
// can assert on what an earlier one observed. One instance is shared by
// reference between collaborating proxies and cleared between runs.
type StatusMap struct {
	m *xsync.MapOf[string, string]
}

// NewStatusMap returns an empty status map.
func NewStatusMap() *StatusMap {
	return &StatusMap{m: xsync.NewMapOf[string, string]()}
}

// Record stores the outcome for a test, replacing any earlier one.
func (s *StatusMap) Record(test, outcome string) {
	s.m.Store(test, outcome)
}

// Outcome returns the recorded outcome for a test.
func (s *StatusMap) Outcome(test string) (string, bool) {
	return s.m.Load(test)
}

// Passed reports whether the test's recorded outcome is the OK reply.
func (s *StatusMap) Passed(test string) bool {
	outcome, ok := s.m.Load(test)

	return ok && outcome == mmi.ReplyOK
}

// Clear drops all recorded outcomes.
func (s *StatusMap) Clear() {
	s.m.Clear()
}
