package plan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// Reps is a rep prescription: either a fixed count or a min-max range.
// Generators emit it as a bare number ("12") or a string ("10-15",
// "30-45 sec hold"); the original text is kept so a stored plan marshals
// back byte-for-byte.
type Reps struct {
	Min int
	Max int
	raw string
}

// FixedReps returns a Reps holding a single fixed count.
func FixedReps(n int) Reps {
	return Reps{Min: n, Max: n}
}

// RepsRange returns a Reps holding a min-max range.
func RepsRange(min, max int) Reps {
	return Reps{Min: min, Max: max, raw: fmt.Sprintf("%d-%d", min, max)}
}

// Planned is the representative scalar used in completion math: the lower
// bound of a range, or the fixed count.
func (r Reps) Planned() int {
	return r.Min
}

// IsRange reports whether the prescription spans more than one count.
func (r Reps) IsRange() bool {
	return r.Max > r.Min
}

func (r Reps) String() string {
	if r.raw != "" {
		return r.raw
	}
	return strconv.Itoa(r.Min)
}

func (r *Reps) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*r = Reps{Min: n, Max: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("reps must be a number or a string: %w", err)
	}
	parsed, err := ParseReps(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Reps) MarshalJSON() ([]byte, error) {
	if r.raw != "" {
		return json.Marshal(r.raw)
	}
	return json.Marshal(r.Min)
}

// JSONSchema renders reps as a string in generator output schemas, which is
// how the LLMs are prompted to emit them.
func (Reps) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "Rep prescription: a number or a min-max range like 10-15",
	}
}

// ParseReps parses a rep prescription string. A leading number is required;
// an optional "-<number>" upper bound follows. Trailing text such as
// "sec hold" is preserved but ignored numerically.
func ParseReps(s string) (Reps, error) {
	trimmed := strings.TrimSpace(s)
	low, rest, ok := leadingInt(trimmed)
	if !ok {
		return Reps{}, fmt.Errorf("unparseable reps value %q", s)
	}
	r := Reps{Min: low, Max: low, raw: trimmed}
	if strings.HasPrefix(rest, "-") {
		if high, _, ok := leadingInt(rest[1:]); ok && high >= low {
			r.Max = high
		}
	}
	return r, nil
}

func leadingInt(s string) (int, string, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, s, false
	}
	return n, s[i:], true
}
