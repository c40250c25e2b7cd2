package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMessageTimestampFormats(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "naive with micros", raw: "2024-05-01T12:00:00.123456", want: time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC)},
		{name: "naive", raw: "2024-05-01T12:00:00", want: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{name: "space separated", raw: "2024-05-01 12:00:00.5", want: time.Date(2024, 5, 1, 12, 0, 0, 500000000, time.UTC)},
		{name: "rfc3339", raw: "2024-05-01T14:00:00+02:00", want: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg RequestMessage
			require.NoError(t, json.Unmarshal([]byte(`{"messageId":"m","timestamp":"`+tt.raw+`","procedure":"watermark"}`), &msg))
			assert.True(t, tt.want.Equal(msg.Timestamp.Time), "got %v", msg.Timestamp.Time)
		})
	}
}

func TestTimestampRejectsGarbage(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`12`), &ts))

	require.NoError(t, json.Unmarshal([]byte(`""`), &ts))
	assert.True(t, ts.IsZero())
}

func TestTimestampEncodesRFC3339(t *testing.T) {
	raw, err := json.Marshal(NewTimestamp(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-01T12:00:00Z"`, string(raw))
}

func TestConfigValueDecoding(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantNaN bool
		wantNil bool
	}{
		{name: "number", raw: `0.5`, want: 0.5},
		{name: "numeric string", raw: `"0.25"`, want: 0.25},
		{name: "padded string", raw: `" 1 "`, want: 1},
		{name: "word", raw: `"opaque"`, wantNaN: true},
		{name: "bool", raw: `true`, wantNaN: true},
		{name: "null", raw: `null`, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var params WatermarkParameters
			require.NoError(t, json.Unmarshal([]byte(`{"user_id":"u","configValue":`+tt.raw+`}`), &params))

			if tt.wantNil {
				assert.Nil(t, params.ConfigValue)
				return
			}
			require.NotNil(t, params.ConfigValue)
			if tt.wantNaN {
				assert.True(t, math.IsNaN(params.ConfigValue.Float64()))
				return
			}
			assert.Equal(t, tt.want, params.ConfigValue.Float64())
		})
	}
}

func TestConfigValueEncoding(t *testing.T) {
	raw, err := json.Marshal(WatermarkParameters{UserID: "u", ConfigValue: NewConfigValue(0.7)})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"configValue":0.7`)

	raw, err = json.Marshal(NewConfigValue(math.NaN()))
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}
