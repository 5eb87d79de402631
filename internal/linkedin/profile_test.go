package linkedin

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearsOfExperience(t *testing.T) {
	now := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		experiences []Experience
		want        float64
	}{
		{
			name: "single current role started 24 months ago",
			experiences: []Experience{
				{StartYear: 2024, StartMonth: 9, IsCurrent: true},
			},
			want: 2.0,
		},
		{
			name: "two non-overlapping past roles of 12 months each",
			experiences: []Experience{
				{StartYear: 2020, StartMonth: 1, EndYear: 2021, EndMonth: 1},
				{StartYear: 2022, StartMonth: 3, EndYear: 2023, EndMonth: 3},
			},
			want: 2.0,
		},
		{
			name: "role missing start year contributes nothing",
			experiences: []Experience{
				{StartYear: 2024, StartMonth: 9, IsCurrent: true},
				{StartYear: 0, EndYear: 2023, EndMonth: 6},
			},
			want: 2.0,
		},
		{
			name:        "no experience entries",
			experiences: nil,
			want:        0,
		},
		{
			name: "missing start month defaults to January",
			experiences: []Experience{
				{StartYear: 2025, EndYear: 2025, EndMonth: 7},
			},
			want: 0.5,
		},
		{
			name: "past role missing end date runs to December of current year",
			experiences: []Experience{
				{StartYear: 2026, StartMonth: 6},
			},
			want: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &Profile{Experiences: tt.experiences}
			assert.InDelta(t, tt.want, yearsOfExperienceAt(profile, now), 0.01)
		})
	}
}

func TestFormatForLLMTruncatesAndLimits(t *testing.T) {
	profile := &Profile{
		PublicID: "jane-doe-1",
		FullName: "Jane Doe",
		Headline: "Staff Engineer",
		JobTitle: "Staff Software Engineer",
		Company:  "Acme",
		Location: "San Francisco Bay Area",
		About:    strings.Repeat("x", 500),
		Educations: []Education{
			{Degree: "BSc", School: "MIT"},
			{Degree: "MSc", School: "Stanford"},
			{Degree: "PhD", School: "Berkeley"},
		},
		Experiences: []Experience{
			{Title: "Staff Engineer", Company: "Acme", IsCurrent: true, StartYear: 2023},
			{Title: "Senior Engineer", Company: "Beta", StartYear: 2020, EndYear: 2023},
			{Title: "Engineer", Company: "Gamma", StartYear: 2018, EndYear: 2020},
			{Title: "Intern", Company: "Delta", StartYear: 2017, EndYear: 2018},
		},
	}

	out := FormatForLLM(profile)

	assert.Equal(t, "jane-doe-1", out.PublicID)
	assert.Len(t, out.About, 300)
	assert.Len(t, out.Education, 2, "only the first two education entries are kept")
	require.Len(t, out.RecentExperience, 3, "only the first three employment entries are kept")
	assert.Equal(t, "Staff Engineer", out.RecentExperience[0].Title)
	assert.True(t, out.RecentExperience[0].IsCurrent)
	assert.Greater(t, out.YearsOfExperience, 0.0)
}

func TestFormatForDisplayKeepsFirstEducationOnly(t *testing.T) {
	profile := &Profile{
		PublicID: "john-smith-2",
		FullName: "John Smith",
		About:    strings.Repeat("y", 250),
		Educations: []Education{
			{Degree: "BSc", School: "ETH"},
			{Degree: "MSc", School: "EPFL"},
		},
	}

	out := FormatForDisplay(profile)

	assert.Len(t, out.About, 200)
	require.Len(t, out.Education, 1)
	assert.Equal(t, "ETH", out.Education[0].School)
}

func TestFormatForDisplayEmptyEducation(t *testing.T) {
	out := FormatForDisplay(&Profile{PublicID: "p"})
	assert.NotNil(t, out.Education)
	assert.Empty(t, out.Education)
}

func TestProfileUnmarshalKeepsRawDocument(t *testing.T) {
	payload := `{"public_id":"jane-doe-1","full_name":"Jane Doe","company_year_founded":"1999","custom_field":42}`

	var profile Profile
	require.NoError(t, json.Unmarshal([]byte(payload), &profile))

	assert.Equal(t, "jane-doe-1", profile.PublicID)
	assert.JSONEq(t, payload, string(profile.Raw), "unknown upstream fields survive in the raw document")
}
