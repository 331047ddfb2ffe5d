package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueKinds(t *testing.T) {
	t.Run("zero value is null", func(t *testing.T) {
		var v Value
		assert.True(t, v.IsNull())
		assert.Equal(t, KindNull, v.Kind())
	})

	t.Run("text", func(t *testing.T) {
		v := Text("01491000")
		s, ok := v.AsText()
		require.True(t, ok)
		assert.Equal(t, "01491000", s)
		_, ok = v.AsNumber()
		assert.False(t, ok)
	})

	t.Run("number", func(t *testing.T) {
		v := Number(2.25)
		f, ok := v.AsNumber()
		require.True(t, ok)
		assert.Equal(t, 2.25, f)
		assert.False(t, v.IsNull())
	})

	t.Run("integer", func(t *testing.T) {
		v := Integer(42)
		i, ok := v.AsInteger()
		require.True(t, ok)
		assert.Equal(t, int64(42), i)
	})
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"null", Null(), ""},
		{"text", Text("ICE"), "ICE"},
		{"number", Number(1.5), "1.5"},
		{"integer", Integer(7), "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.String())
		})
	}
}

func TestValueMarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"null", Null(), "null"},
		{"text", Text("ICE"), `"ICE"`},
		{"number", Number(1.5), "1.5"},
		{"integer", Integer(7), "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}
}
