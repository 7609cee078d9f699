package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamFloat(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    float64
		wantErr bool
	}{
		{0.5, 0.5, false},
		{float32(0.25), 0.25, false},
		{3, 3, false},
		{int64(7), 7, false},
		{"0.1", 0, true},
	}
	for _, tt := range tests {
		got, err := ParamFloat("p", tt.in)
		assert.Equal(t, tt.wantErr, err != nil)
		assert.Equal(t, tt.want, got)
	}
}

func TestParamInt(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    int
		wantErr bool
	}{
		{5, 5, false},
		{float64(10), 10, false},
		{10.5, 0, true},
		{"5", 0, true},
	}
	for _, tt := range tests {
		got, err := ParamInt("p", tt.in)
		assert.Equal(t, tt.wantErr, err != nil)
		assert.Equal(t, tt.want, got)
	}
}

func TestParamString(t *testing.T) {
	s, err := ParamString("p", "log2")
	assert.NoError(t, err)
	assert.Equal(t, "log2", s)

	_, err = ParamString("p", 2)
	assert.Error(t, err)
}
