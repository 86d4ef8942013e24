package commission

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Percent decodes a whole-number percentage from JSON. Absent and null
// decode to zero; numeric strings are accepted; fractions are rejected.
type Percent int

func (p *Percent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = 0
		return nil
	}

	raw := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		if raw == "" {
			*p = 0
			return nil
		}
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return errFractionalInput
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
		return errFractionalInput
	}
	if value > math.MaxInt32 || value < math.MinInt32 {
		return ErrInvalidRange
	}
	*p = Percent(int(value))
	return nil
}

func (p Percent) Int() int {
	return int(p)
}
