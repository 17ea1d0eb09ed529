package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexBoolUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"bool true", `true`, true},
		{"bool false", `false`, false},
		{"yes string", `"Yes"`, true},
		{"no string", `"No"`, false},
		{"lowercase yes", `"yes"`, true},
		{"true string", `"true"`, true},
		{"numeric one", `1`, true},
		{"numeric zero", `0`, false},
		{"null", `null`, false},
		{"empty string", `""`, false},
		{"garbage", `"maybe"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b FlexBool
			require.NoError(t, json.Unmarshal([]byte(tt.in), &b))
			assert.Equal(t, tt.want, b.Bool())
		})
	}
}

func TestFlexBoolMarshal(t *testing.T) {
	out, err := json.Marshal(FlexBool(true))
	require.NoError(t, err)
	assert.Equal(t, `"Yes"`, string(out))

	out, err = json.Marshal(FlexBool(false))
	require.NoError(t, err)
	assert.Equal(t, `"No"`, string(out))
}

func TestFlexStringUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"string", `"123 Main St"`, "123 Main St"},
		{"trims whitespace", `"  WAKE  "`, "WAKE"},
		{"number", `42500`, "42500"},
		{"bool", `true`, "true"},
		{"null", `null`, ""},
		{"object ignored", `{"a":1}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s FlexString
			require.NoError(t, json.Unmarshal([]byte(tt.in), &s))
			assert.Equal(t, tt.want, s.String())
		})
	}
}

func TestFlexStringIsBlank(t *testing.T) {
	assert.True(t, FlexString("").IsBlank())
	assert.True(t, FlexString("  ").IsBlank())
	assert.True(t, FlexString("None").IsBlank())
	assert.True(t, FlexString("null").IsBlank())
	assert.True(t, FlexString("N/A").IsBlank())
	assert.False(t, FlexString("0").IsBlank())
	assert.False(t, FlexString("123 Main St").IsBlank())
}

func TestFlexIntUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      int
		wantValid bool
	}{
		{"int", `3`, 3, true},
		{"float truncates", `4.9`, 4, true},
		{"numeric string", `"5"`, 5, true},
		{"null", `null`, 0, false},
		{"empty string", `""`, 0, false},
		{"garbage", `"high"`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var i FlexInt
			require.NoError(t, json.Unmarshal([]byte(tt.in), &i))
			assert.Equal(t, tt.wantValid, i.Valid)
			assert.Equal(t, tt.want, i.Value)
		})
	}
}

func TestFlexIntPtr(t *testing.T) {
	assert.Nil(t, FlexInt{}.Ptr())
	p := FlexInt{Value: 4, Valid: true}.Ptr()
	require.NotNil(t, p)
	assert.Equal(t, 4, *p)
}
