package pipeline

import (
	"fmt"
	"strings"

	"resumehub/internal/resume"
)

// FitScore computes the 0-100 heuristic score over experience, education
// and skill coverage. Deliberately simple; the score ranks candidates
// within this system, it is not calibrated against anything external.
func FitScore(info resume.ExtractedInfo) float64 {
	score := 30.0

	experience := info.TotalExperienceYears * 3
	if experience > 30 {
		experience = 30
	}
	score += experience

	score += float64(info.HighestEducation()) * 5

	skills := float64(len(info.Skills)) * 2
	if skills > 10 {
		skills = 10
	}
	score += skills

	if score > 100 {
		score = 100
	}
	return score
}

// Summary renders a one-paragraph plain-text summary of the extraction.
func Summary(info resume.ExtractedInfo, score float64) string {
	var parts []string
	if info.Name != "" {
		parts = append(parts, info.Name)
	}
	role := info.CurrentPosition
	if info.CurrentCompany != "" {
		if role != "" {
			role += " at " + info.CurrentCompany
		} else {
			role = info.CurrentCompany
		}
	}
	if role != "" {
		parts = append(parts, role)
	}
	parts = append(parts, fmt.Sprintf("%.1f years of experience", info.TotalExperienceYears))
	if n := len(info.Skills); n > 0 {
		parts = append(parts, fmt.Sprintf("%d matched skills", n))
	}
	parts = append(parts, fmt.Sprintf("fit score %.0f/100", score))
	return strings.Join(parts, ", ")
}
