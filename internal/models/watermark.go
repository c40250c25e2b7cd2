package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// WatermarkParameters is the parameter object of a watermark request.
// ConfigValue is the opacity override; nil means the service default.
type WatermarkParameters struct {
	MessageID     string       `json:"messageId,omitempty"`
	UserID        string       `json:"user_id"`
	ProjectID     string       `json:"project_id"`
	InputImageURI string       `json:"inputImageURI"`
	ConfigValue   *ConfigValue `json:"configValue,omitempty"`
	ConfigColor   string       `json:"configColor,omitempty"` // accepted but unused
}

// ConfigValue is a number that also accepts numeric strings such as "0.5".
// Anything that is not a number decodes as NaN, which parameter validation
// reports as invalid input instead of failing the whole request body.
type ConfigValue float64

func NewConfigValue(v float64) *ConfigValue {
	c := ConfigValue(v)
	return &c
}

func (c ConfigValue) Float64() float64 {
	return float64(c)
}

func (c *ConfigValue) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(strings.TrimSpace(s))
	}

	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		v = math.NaN()
	}
	*c = ConfigValue(v)
	return nil
}

// MarshalJSON writes non-finite values as null.
func (c ConfigValue) MarshalJSON() ([]byte, error) {
	v := float64(c)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}
