package profile_test

import (
	"testing"

	"github.com/bt-conformance/ptsproxy/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceName(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"0x1105", "OBEXObjectPush"},
		{"0x1800", "Generic Access"},
		{"0x1801", "Generic Attribute service"},
		{"0x001105", "OBEXObjectPush"},
		{"0xC26CF57233694CF2B5CCD2CD130F5B2C", "Android Auto Compatibility"},
		{"0xDEAD", "0xDEAD"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, profile.ServiceName(tt.token), tt.token)
	}
}

var testRule = profile.ServiceListRule{
	Expected: []string{"A", "B", "C", "D", "E"},
	Optional: []string{"B", "E"},
	Movable:  []string{"D"},
}

func TestServiceListRuleVerify(t *testing.T) {
	tests := []struct {
		name     string
		reported []string
		wantErr  bool
	}{
		{"exact order", []string{"A", "B", "C", "D", "E"}, false},
		{"movable relocated", []string{"D", "A", "B", "C", "E"}, false},
		{"optional absent", []string{"A", "C", "D"}, false},
		{"optional absent and movable relocated", []string{"A", "C", "E", "D"}, false},
		{"movable missing", []string{"A", "B", "C", "E"}, true},
		{"required missing", []string{"A", "B", "D", "E"}, true},
		{"fixed order violated", []string{"C", "B", "A", "D", "E"}, true},
		{"unexpected extra service", []string{"A", "B", "C", "D", "E", "F"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testRule.Verify(tt.reported)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// An optional service that is also movable drops out of both lists when
// it is not reported.
func TestServiceListRuleOptionalMovable(t *testing.T) {
	rule := profile.ServiceListRule{
		Expected: []string{"A", "B", "C"},
		Optional: []string{"B"},
		Movable:  []string{"B"},
	}

	require.NoError(t, rule.Verify([]string{"A", "C"}))
	require.NoError(t, rule.Verify([]string{"A", "C", "B"}))
	require.NoError(t, rule.Verify([]string{"B", "A", "C"}))
}
