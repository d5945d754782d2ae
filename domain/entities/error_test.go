package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
)

func TestErrorDetail_Error(t *testing.T) {
	tests := []struct {
		name   string
		detail *entities.ErrorDetail
		want   string
	}{
		{"nil", nil, ""},
		{"internal", entities.NewErrorDetail(entities.ErrorTypeInternal, "boom"), "boom"},
		{"typed", entities.NewErrorDetail(entities.ErrorTypeIO, "read a.js: denied"), "io: read a.js: denied"},
		{
			name:   "with code",
			detail: &entities.ErrorDetail{Type: entities.ErrorTypeNamespace, Code: "duplicate", Message: "x"},
			want:   "namespace[duplicate]: x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.detail.Error())
		})
	}
}

func TestErrorDetail_Cause(t *testing.T) {
	inner := &entities.ErrorDetail{Type: entities.ErrorTypeBridge, Path: "Vector.add"}
	outer := &entities.ErrorDetail{
		Type:    entities.ErrorTypeCompile,
		Wrapped: &entities.ErrorDetail{Type: entities.ErrorTypeRuntime, Wrapped: inner},
	}
	assert.Same(t, inner, outer.Cause())
	assert.Same(t, inner, inner.Cause())

	var none *entities.ErrorDetail
	assert.Nil(t, none.Cause())
}
