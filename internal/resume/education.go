package resume

import "strings"

// EducationLevel maps degrees onto a comparable 1-6 scale.
// 0 means the level could not be determined.
type EducationLevel int

const (
	EducationUnknown    EducationLevel = 0
	EducationElementary EducationLevel = 1
	EducationMiddle     EducationLevel = 2
	EducationHighSchool EducationLevel = 3
	EducationBachelor   EducationLevel = 4
	EducationMaster     EducationLevel = 5
	EducationDoctorate  EducationLevel = 6
)

// Keyword table checked against lowercased institution/degree text.
// Longer, more specific keywords come first so "high school" wins over "school".
var educationKeywords = []struct {
	keyword string
	level   EducationLevel
}{
	{"doctorate", EducationDoctorate},
	{"ph.d", EducationDoctorate},
	{"phd", EducationDoctorate},
	{"doctoral", EducationDoctorate},
	{"master", EducationMaster},
	{"m.sc", EducationMaster},
	{"mba", EducationMaster},
	{"graduate school", EducationMaster},
	{"bachelor", EducationBachelor},
	{"b.sc", EducationBachelor},
	{"b.a.", EducationBachelor},
	{"university", EducationBachelor},
	{"college", EducationBachelor},
	{"undergraduate", EducationBachelor},
	{"high school", EducationHighSchool},
	{"highschool", EducationHighSchool},
	{"middle school", EducationMiddle},
	{"elementary", EducationElementary},
}

// DetectEducationLevel extracts the education level from free text.
func DetectEducationLevel(text string) EducationLevel {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return EducationUnknown
	}
	best := EducationUnknown
	for _, entry := range educationKeywords {
		if strings.Contains(lower, entry.keyword) && entry.level > best {
			best = entry.level
		}
	}
	return best
}

// Education is one detected education entry.
type Education struct {
	Institution string         `json:"institution"`
	Degree      string         `json:"degree,omitempty"`
	Period      string         `json:"period,omitempty"`
	Level       EducationLevel `json:"level"`
}

// WorkExperience is one detected employment entry.
type WorkExperience struct {
	Company  string `json:"company"`
	Position string `json:"position,omitempty"`
	Period   string `json:"period,omitempty"`
}

// ExtractedInfo carries everything the pipeline derives from a resume PDF.
type ExtractedInfo struct {
	Name                 string           `json:"name,omitempty"`
	Email                string           `json:"email,omitempty"`
	Phone                string           `json:"phone,omitempty"`
	Address              string           `json:"address,omitempty"`
	BirthYear            int              `json:"birth_year,omitempty"`
	TotalExperienceYears float64          `json:"total_experience_years"`
	CurrentPosition      string           `json:"current_position,omitempty"`
	CurrentCompany       string           `json:"current_company,omitempty"`
	PreviousCompanies    []string         `json:"previous_companies,omitempty"`
	Educations           []Education      `json:"educations,omitempty"`
	WorkExperiences      []WorkExperience `json:"work_experiences,omitempty"`
	Skills               []string         `json:"skills,omitempty"`
	Certifications       []string         `json:"certifications,omitempty"`
	Languages            []string         `json:"languages,omitempty"`
}

// HighestEducation returns the best detected level, or EducationUnknown.
func (e ExtractedInfo) HighestEducation() EducationLevel {
	best := EducationUnknown
	for _, edu := range e.Educations {
		if edu.Level > best {
			best = edu.Level
		}
	}
	return best
}
