package generation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdict struct {
	Frequency *bool `json:"frequency"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    bool
		wantErr bool
	}{
		{name: "plain", raw: `{"frequency": true}`, want: true},
		{name: "fenced", raw: "```json\n{\"frequency\": false}\n```", want: false},
		{name: "prose around", raw: `Here you go: {"frequency": true} hope it helps`, want: true},
		{name: "brace inside string", raw: `{"note": "a } b", "frequency": true}`, want: true},
		{name: "no object", raw: "yes", wantErr: true},
		{name: "truncated", raw: `{"frequency": tr`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSON[verdict](tt.raw, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidOutput)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got.Frequency)
			assert.Equal(t, tt.want, *got.Frequency)
		})
	}
}

func TestDecodeJSONRunsCheck(t *testing.T) {
	check := func(v verdict) error {
		if v.Frequency == nil {
			return errors.New("frequency missing")
		}
		return nil
	}

	_, err := DecodeJSON(`{"other": 1}`, check)
	assert.ErrorIs(t, err, ErrInvalidOutput)
	assert.Contains(t, err.Error(), "frequency missing")
}
