package pipeline

import (
	"strings"
	"testing"

	"resumehub/internal/resume"
)

const sampleResumeText = `Jane Doe
jane.doe@example.com
+1 555 123 4567
Born 1990

Work Experience
Senior Engineer at Acme Corp 2019 - 2023
Backend Developer at Initech 2015 - 2019

Education
State University, Bachelor of Science 2011 - 2015

Skills
Go, Python, Docker

Languages
English, Korean

AWS Certified Solutions Architect
`

func TestParseResumeText(t *testing.T) {
	info := ParseResumeText(sampleResumeText)

	if info.Name != "Jane Doe" {
		t.Errorf("name: expected Jane Doe, got %q", info.Name)
	}
	if info.Email != "jane.doe@example.com" {
		t.Errorf("email: got %q", info.Email)
	}
	if info.Phone != "+1 555 123 4567" {
		t.Errorf("phone: got %q", info.Phone)
	}
	if info.BirthYear != 1990 {
		t.Errorf("birth year: got %d", info.BirthYear)
	}

	if info.CurrentCompany != "Acme Corp" {
		t.Errorf("current company: got %q", info.CurrentCompany)
	}
	if info.CurrentPosition != "Senior Engineer" {
		t.Errorf("current position: got %q", info.CurrentPosition)
	}
	if len(info.PreviousCompanies) != 1 || info.PreviousCompanies[0] != "Initech" {
		t.Errorf("previous companies: got %v", info.PreviousCompanies)
	}
	if info.TotalExperienceYears != 8.0 {
		t.Errorf("experience: expected 8.0, got %v", info.TotalExperienceYears)
	}

	if len(info.Educations) != 1 {
		t.Fatalf("educations: expected 1 entry, got %d", len(info.Educations))
	}
	if info.Educations[0].Level != resume.EducationBachelor {
		t.Errorf("education level: got %v", info.Educations[0].Level)
	}
	if !strings.Contains(info.Educations[0].Institution, "State University") {
		t.Errorf("institution: got %q", info.Educations[0].Institution)
	}
	if info.HighestEducation() != resume.EducationBachelor {
		t.Errorf("highest education: got %v", info.HighestEducation())
	}

	for _, want := range []string{"go", "python", "docker", "aws"} {
		found := false
		for _, skill := range info.Skills {
			if skill == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("skills: expected %q in %v", want, info.Skills)
		}
	}
	if len(info.Languages) != 2 {
		t.Errorf("languages: expected english and korean, got %v", info.Languages)
	}
	if len(info.Certifications) != 1 {
		t.Errorf("certifications: got %v", info.Certifications)
	}
}

func TestParseResumeText_PresentPeriod(t *testing.T) {
	text := `Jane Doe

Work Experience
Senior Engineer at Acme Corp 2019 - Present
`
	info := ParseResumeText(text)

	if info.CurrentCompany != "Acme Corp" {
		t.Errorf("current company: got %q, want Acme Corp", info.CurrentCompany)
	}
	if info.CurrentPosition != "Senior Engineer" {
		t.Errorf("current position: got %q", info.CurrentPosition)
	}
	if info.TotalExperienceYears <= 0 {
		t.Errorf("experience: got %v, want > 0", info.TotalExperienceYears)
	}
}

func TestParseResumeText_KeepsEntriesWithUnparseablePeriods(t *testing.T) {
	text := `Jane Doe

Experience
Acme Corp, Senior Engineer, March 2019 to May 2021
`
	info := ParseResumeText(text)

	if len(info.WorkExperiences) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(info.WorkExperiences))
	}
	if info.CurrentCompany != "Acme Corp" {
		t.Errorf("current company: got %q", info.CurrentCompany)
	}
	// Entries without a parseable span count as one year.
	if info.TotalExperienceYears != 1.0 {
		t.Errorf("experience: got %v, want 1.0", info.TotalExperienceYears)
	}
}

func TestParseResumeText_PeriodIsNotAPhone(t *testing.T) {
	text := `Jane Doe

Work Experience
Senior Engineer at Acme Corp 2015 - 2019
`
	info := ParseResumeText(text)

	if info.Phone != "" {
		t.Fatalf("expected no phone, got %q", info.Phone)
	}
}

func TestParseResumeText_EmptyInput(t *testing.T) {
	info := ParseResumeText("")
	if info.Name != "" || info.Email != "" || len(info.Skills) != 0 {
		t.Fatalf("expected zero info, got %+v", info)
	}
	if info.TotalExperienceYears != 0 {
		t.Fatalf("expected zero experience, got %v", info.TotalExperienceYears)
	}
}

func TestTotalExperienceYears_FallbackPerEntry(t *testing.T) {
	works := []resume.WorkExperience{
		{Period: "unknown"},
		{Period: "2020 - 2022"},
	}
	got := totalExperienceYears(works)
	if got != 3.0 {
		t.Fatalf("expected 3.0 (1 fallback + 2 parsed), got %v", got)
	}
}

func TestSplitCompanyPosition(t *testing.T) {
	cases := []struct {
		in       string
		company  string
		position string
	}{
		{"Senior Engineer at Acme Corp", "Acme Corp", "Senior Engineer"},
		{"Acme Corp, Senior Engineer", "Acme Corp", "Senior Engineer"},
		{"Acme Corp", "Acme Corp", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		company, position := splitCompanyPosition(tc.in)
		if company != tc.company || position != tc.position {
			t.Errorf("%q: got (%q, %q), want (%q, %q)", tc.in, company, position, tc.company, tc.position)
		}
	}
}

func TestContainsWord(t *testing.T) {
	if !containsWord("go, python and docker", "go") {
		t.Error("expected word match for go")
	}
	if containsWord("golang and django", "go") {
		t.Error("go must not match inside golang")
	}
	if !containsWord("c++ developer", "c++") {
		t.Error("expected match for c++")
	}
}

func TestFitScore(t *testing.T) {
	base := FitScore(resume.ExtractedInfo{})
	if base != 30 {
		t.Fatalf("empty info: expected base score 30, got %v", base)
	}

	info := resume.ExtractedInfo{
		TotalExperienceYears: 8,
		Educations:           []resume.Education{{Level: resume.EducationBachelor}},
		Skills:               []string{"go", "python", "docker", "aws"},
	}
	// 30 base + 24 experience + 20 education + 8 skills.
	if got := FitScore(info); got != 82 {
		t.Fatalf("expected 82, got %v", got)
	}

	maxed := resume.ExtractedInfo{
		TotalExperienceYears: 20,
		Educations:           []resume.Education{{Level: resume.EducationDoctorate}},
		Skills:               []string{"a", "b", "c", "d", "e", "f"},
	}
	if got := FitScore(maxed); got != 100 {
		t.Fatalf("expected cap at 100, got %v", got)
	}
}

func TestSummary(t *testing.T) {
	info := resume.ExtractedInfo{
		Name:                 "Jane Doe",
		CurrentPosition:      "Senior Engineer",
		CurrentCompany:       "Acme Corp",
		TotalExperienceYears: 8,
		Skills:               []string{"go", "docker"},
	}
	got := Summary(info, 82)
	want := "Jane Doe, Senior Engineer at Acme Corp, 8.0 years of experience, 2 matched skills, fit score 82/100"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	anonymous := Summary(resume.ExtractedInfo{}, 30)
	if anonymous != "0.0 years of experience, fit score 30/100" {
		t.Fatalf("got %q", anonymous)
	}
}
