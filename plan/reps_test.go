package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReps(t *testing.T) {
	tests := []struct {
		in      string
		min     int
		max     int
		planned int
		isRange bool
	}{
		{"12", 12, 12, 12, false},
		{"10-15", 10, 15, 10, true},
		{" 8-12 ", 8, 12, 8, true},
		{"30-45 sec hold", 30, 45, 30, true},
		{"20 each side", 20, 20, 20, false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			r, err := ParseReps(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.min, r.Min)
			assert.Equal(t, tc.max, r.Max)
			assert.Equal(t, tc.planned, r.Planned())
			assert.Equal(t, tc.isRange, r.IsRange())
		})
	}
}

func TestParseRepsRejectsNonNumeric(t *testing.T) {
	_, err := ParseReps("hold until failure")
	assert.Error(t, err)
}

func TestRepsJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"number stays number", `12`, `12`},
		{"range stays verbatim", `"10-15"`, `"10-15"`},
		{"annotated string stays verbatim", `"30-45 sec hold"`, `"30-45 sec hold"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var r Reps
			require.NoError(t, json.Unmarshal([]byte(tc.in), &r))
			out, err := json.Marshal(r)
			require.NoError(t, err)
			assert.Equal(t, tc.out, string(out))
		})
	}
}

func TestRepsUnmarshalRejectsObjects(t *testing.T) {
	var r Reps
	assert.Error(t, json.Unmarshal([]byte(`{"min": 10}`), &r))
}

func TestFixedRepsAndRange(t *testing.T) {
	assert.Equal(t, "10", FixedReps(10).String())
	assert.False(t, FixedReps(10).IsRange())

	r := RepsRange(10, 15)
	assert.Equal(t, "10-15", r.String())
	assert.Equal(t, 10, r.Planned())
}
