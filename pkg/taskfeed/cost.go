package taskfeed

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Cost is a solution cost. NaN means "still running/unknown", +Inf means
// "failed". JSON has no representation for either, so they travel as the
// strings "nan", "inf" and "-inf".
type Cost float32

// Unknown returns the NaN cost sentinel.
func Unknown() Cost { return Cost(math.NaN()) }

// Failed returns the +Inf cost sentinel.
func Failed() Cost { return Cost(math.Inf(1)) }

// Float64 returns the cost as float64, keeping NaN and infinities.
func (c Cost) Float64() float64 { return float64(c) }

// IsUnknown reports whether c is NaN.
func (c Cost) IsUnknown() bool { return math.IsNaN(float64(c)) }

// IsFailed reports whether c is +Inf.
func (c Cost) IsFailed() bool { return math.IsInf(float64(c), 1) }

// MarshalJSON implements json.Marshaler.
func (c Cost) MarshalJSON() ([]byte, error) {
	f := float64(c)
	switch {
	case math.IsNaN(f):
		return []byte(`"nan"`), nil
	case math.IsInf(f, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-inf"`), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 32)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cost) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := parseCost(s)
		if err != nil {
			return err
		}
		*c = v
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	// Finite numbers beyond float32 would otherwise read as the failure sentinel.
	f, err := strconv.ParseFloat(string(data), 32)
	if err != nil {
		return fmt.Errorf("invalid cost %s: %w", string(data), err)
	}
	*c = Cost(f)
	return nil
}

// UnmarshalYAML accepts numbers as well as nan/inf spellings (".nan", ".inf").
func (c *Cost) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: cost must be a scalar", value.Line)
	}
	v, err := parseCost(value.Value)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func parseCost(s string) (Cost, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nan", ".nan":
		return Unknown(), nil
	case "inf", "+inf", ".inf", "+.inf":
		return Failed(), nil
	case "-inf", "-.inf":
		return Cost(math.Inf(-1)), nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, fmt.Errorf("invalid cost %q", s)
	}
	return Cost(f), nil
}
