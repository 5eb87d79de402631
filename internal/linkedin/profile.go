package linkedin

import (
	"encoding/json"
	"math"
	"time"
)

// Profile models the fields of a candidate record this service actually reads.
// The upstream payload carries many more; the full document is preserved in
// Raw and stored verbatim, so nothing is lost when the upstream adds fields.
type Profile struct {
	PublicID        string      `json:"public_id"`
	FullName        string      `json:"full_name"`
	Headline        string      `json:"headline"`
	JobTitle        string      `json:"job_title"`
	Company         string      `json:"company"`
	Location        string      `json:"location"`
	About           string      `json:"about"`
	LinkedInURL     string      `json:"linkedin_url"`
	ProfileImageURL string      `json:"profile_image_url"`
	CompanyLogoURL  string      `json:"company_logo_url"`
	Educations      []Education `json:"educations"`
	Experiences     []Experience `json:"experiences"`

	Raw json.RawMessage `json:"-"`
}

type Education struct {
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
	School       string `json:"school"`
}

type Experience struct {
	Title      string `json:"title"`
	Company    string `json:"company"`
	Duration   string `json:"duration"`
	IsCurrent  bool   `json:"is_current"`
	StartMonth int    `json:"start_month"`
	StartYear  int    `json:"start_year"`
	EndMonth   int    `json:"end_month"`
	EndYear    int    `json:"end_year"`
}

// UnmarshalJSON decodes the typed fields and keeps the original document.
func (p *Profile) UnmarshalJSON(b []byte) error {
	type alias Profile
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*p = Profile(a)
	p.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// LLMProfile is the concise projection sent back to the agent; it drops
// everything not needed for summarization to keep token usage down.
type LLMProfile struct {
	PublicID          string          `json:"public_id"`
	FullName          string          `json:"full_name"`
	Headline          string          `json:"headline"`
	CurrentTitle      string          `json:"current_title"`
	CurrentCompany    string          `json:"current_company"`
	Location          string          `json:"location"`
	YearsOfExperience float64         `json:"years_of_experience"`
	Education         []Education     `json:"education"`
	RecentExperience  []LLMExperience `json:"recent_experience"`
	LinkedInURL       string          `json:"linkedin_url"`
	About             string          `json:"about"`
}

type LLMExperience struct {
	Title     string `json:"title"`
	Company   string `json:"company"`
	Duration  string `json:"duration"`
	IsCurrent bool   `json:"is_current"`
}

// DisplayProfile is the richer projection kept for the UI: it is what lands in
// a session's tool-results slot and in /chat/send responses.
type DisplayProfile struct {
	PublicID          string      `json:"public_id"`
	FullName          string      `json:"full_name"`
	JobTitle          string      `json:"job_title"`
	Company           string      `json:"company"`
	Location          string      `json:"location"`
	LinkedInURL       string      `json:"linkedin_url"`
	ProfileImageURL   string      `json:"profile_image_url"`
	CompanyLogoURL    string      `json:"company_logo_url"`
	Headline          string      `json:"headline"`
	About             string      `json:"about"`
	YearsOfExperience float64     `json:"years_of_experience"`
	Education         []Education `json:"education"`
}

// YearsOfExperience sums the month span of every employment entry and converts
// to years rounded to one decimal place. Current roles run to now; entries
// without a start year contribute nothing.
func YearsOfExperience(p *Profile) float64 {
	return yearsOfExperienceAt(p, time.Now())
}

func yearsOfExperienceAt(p *Profile, now time.Time) float64 {
	if len(p.Experiences) == 0 {
		return 0
	}

	currentYear := now.Year()
	currentMonth := int(now.Month())

	totalMonths := 0
	for _, exp := range p.Experiences {
		if exp.StartYear == 0 {
			continue
		}

		startMonth := exp.StartMonth
		if startMonth == 0 {
			startMonth = 1
		}

		endYear, endMonth := exp.EndYear, exp.EndMonth
		if exp.IsCurrent {
			endYear, endMonth = currentYear, currentMonth
		} else {
			if endYear == 0 {
				endYear = currentYear
			}
			if endMonth == 0 {
				endMonth = 12
			}
		}

		totalMonths += (endYear-exp.StartYear)*12 + (endMonth - startMonth)
	}

	return math.Round(float64(totalMonths)/12*10) / 10
}

// FormatForLLM reduces a profile to the concise agent-facing form: first two
// education entries, first three employment entries, about text capped at 300
// characters.
func FormatForLLM(p *Profile) LLMProfile {
	out := LLMProfile{
		PublicID:          p.PublicID,
		FullName:          p.FullName,
		Headline:          p.Headline,
		CurrentTitle:      p.JobTitle,
		CurrentCompany:    p.Company,
		Location:          p.Location,
		YearsOfExperience: YearsOfExperience(p),
		Education:         []Education{},
		RecentExperience:  []LLMExperience{},
		LinkedInURL:       p.LinkedInURL,
		About:             truncate(p.About, 300),
	}

	for i, edu := range p.Educations {
		if i == 2 {
			break
		}
		out.Education = append(out.Education, edu)
	}

	for i, exp := range p.Experiences {
		if i == 3 {
			break
		}
		out.RecentExperience = append(out.RecentExperience, LLMExperience{
			Title:     exp.Title,
			Company:   exp.Company,
			Duration:  exp.Duration,
			IsCurrent: exp.IsCurrent,
		})
	}

	return out
}

// FormatForDisplay builds the UI-facing projection: first education entry,
// about text capped at 200 characters.
func FormatForDisplay(p *Profile) DisplayProfile {
	out := DisplayProfile{
		PublicID:          p.PublicID,
		FullName:          p.FullName,
		JobTitle:          p.JobTitle,
		Company:           p.Company,
		Location:          p.Location,
		LinkedInURL:       p.LinkedInURL,
		ProfileImageURL:   p.ProfileImageURL,
		CompanyLogoURL:    p.CompanyLogoURL,
		Headline:          p.Headline,
		About:             truncate(p.About, 200),
		YearsOfExperience: YearsOfExperience(p),
		Education:         []Education{},
	}

	if len(p.Educations) > 0 {
		out.Education = append(out.Education, p.Educations[0])
	}

	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
