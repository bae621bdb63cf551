package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswers(t *testing.T) {
	a, errs := ParseAnswers(`{
		"years_experience": 3,
		"willing_to_relocate": true,
		"earliest_start": "2026-12-01",
		"salary_expectation": "negotiable",
		"work_authorization": "EU citizen"
	}`)
	require.Empty(t, errs)
	assert.Equal(t, 3, *a.YearsExperience)
	assert.True(t, *a.WillingToRelocate)
	assert.Equal(t, "2026-12-01", a.EarliestStart)
	assert.Equal(t, "negotiable", a.SalaryExpectation)
	assert.Equal(t, "EU citizen", a.WorkAuthorization)
}

func TestParseAnswers_Empty(t *testing.T) {
	a, errs := ParseAnswers("  ")
	assert.Empty(t, errs)
	assert.True(t, a.Empty())
}

func TestParseAnswers_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":       `{"years_experience":`,
		"not an object":  `[1, 2]`,
		"unknown key":    `{"favourite_colour": "blue"}`,
		"negative years": `{"years_experience": -1}`,
		"fractional":     `{"years_experience": 2.5}`,
		"bad date":       `{"earliest_start": "next week"}`,
		"wrong type":     `{"willing_to_relocate": "yes"}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, errs := ParseAnswers(raw)
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0].Field, "answers")
		})
	}
}
