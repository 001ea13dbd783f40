package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "caseflow/pkg/domain-errors"
)

func TestCreateCaseRequestValidate(t *testing.T) {
	valid := func() CreateCaseRequest {
		return CreateCaseRequest{Title: "Suspicious wire", CaseType: CaseTypeAML}
	}

	t.Run("valid", func(t *testing.T) {
		r := valid()
		require.NoError(t, r.Validate())
	})

	tests := []struct {
		name    string
		mutate  func(r *CreateCaseRequest)
		message string
	}{
		{"missing title", func(r *CreateCaseRequest) { r.Title = "" }, "title is required"},
		{"blank title", func(r *CreateCaseRequest) { r.Title = "   " }, "title must not be blank"},
		{"long title", func(r *CreateCaseRequest) { r.Title = strings.Repeat("a", 256) }, "title must be at most 255 characters"},
		{"long description", func(r *CreateCaseRequest) { r.Description = strings.Repeat("a", 5001) }, "description must be at most 5000 characters"},
		{"missing type", func(r *CreateCaseRequest) { r.CaseType = "" }, "case_type is required"},
		{"unknown type", func(r *CreateCaseRequest) { r.CaseType = "PHISHING" }, "unknown case type"},
		{"unknown priority", func(r *CreateCaseRequest) { r.Priority = "URGENT" }, "unknown priority"},
		{"too many tags", func(r *CreateCaseRequest) { r.Tags = make([]string, MaxTags+1) }, "tags"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := valid()
			tc.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Contains(t, err.Error(), tc.message)
		})
	}

	t.Run("title length counts characters", func(t *testing.T) {
		r := valid()
		r.Title = strings.Repeat("é", 255)
		assert.NoError(t, r.Validate())
	})
}

func TestUpdateCaseRequestValidate(t *testing.T) {
	t.Run("empty patch is valid", func(t *testing.T) {
		r := UpdateCaseRequest{}
		require.NoError(t, r.Validate())
		assert.True(t, r.IsEmpty())
	})

	t.Run("blank title", func(t *testing.T) {
		blank := " "
		r := UpdateCaseRequest{Title: &blank}
		assert.True(t, dErrors.HasCode(r.Validate(), dErrors.CodeValidation))
	})

	t.Run("unknown priority", func(t *testing.T) {
		p := Priority("URGENT")
		r := UpdateCaseRequest{Priority: &p}
		assert.True(t, dErrors.HasCode(r.Validate(), dErrors.CodeValidation))
	})

	t.Run("known priority", func(t *testing.T) {
		p := PriorityLow
		r := UpdateCaseRequest{Priority: &p}
		assert.NoError(t, r.Validate())
		assert.False(t, r.IsEmpty())
	})
}

func TestListFilterNormalize(t *testing.T) {
	f := ListFilter{Size: 1000, Search: "  wire "}
	require.NoError(t, f.Normalize())
	assert.Equal(t, MaxPageSize, f.Size)
	assert.Equal(t, "wire", f.Search)

	f = ListFilter{}
	require.NoError(t, f.Normalize())
	assert.Equal(t, DefaultPageSize, f.Size)
	assert.Equal(t, 0, f.Offset())

	f = ListFilter{Page: -1}
	assert.Error(t, f.Normalize())
}
