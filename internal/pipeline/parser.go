package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"resumehub/internal/resume"
)

// ExtractText pulls the plain text out of a PDF file, page by page.
// Pages that fail to decode are skipped; an entirely empty document is
// an error because nothing downstream can work with it.
func ExtractText(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var builder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		builder.WriteString(text)
		builder.WriteString("\n\n")
	}

	text := builder.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text content found in pdf")
	}
	return text, nil
}

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern  = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	periodPattern = regexp.MustCompile(`(?i)((?:19|20)\d{2})\s*[-–—~]\s*((?:19|20)\d{2}|present|now|current)`)
	yearPattern   = regexp.MustCompile(`(?:19|20)\d{2}`)
	birthPattern  = regexp.MustCompile(`(?i)(?:born|birth)\D{0,10}((?:19|20)\d{2})`)
)

// skillKeywords are matched case-insensitively against the whole text.
var skillKeywords = []string{
	"go", "python", "java", "javascript", "typescript", "c++", "rust",
	"sql", "postgresql", "mysql", "redis", "mongodb",
	"docker", "kubernetes", "terraform", "aws", "gcp", "azure",
	"react", "vue", "linux", "git", "kafka", "grpc",
}

var languageKeywords = []string{
	"english", "korean", "japanese", "chinese", "german", "french", "spanish",
}

// ParseResumeText derives structured fields from raw resume text. Pure
// best-effort: anything it cannot find stays zero.
func ParseResumeText(text string) resume.ExtractedInfo {
	info := resume.ExtractedInfo{}
	lines := splitLines(text)
	lower := strings.ToLower(text)

	if m := emailPattern.FindString(text); m != "" {
		info.Email = m
	}
	for _, candidate := range phonePattern.FindAllString(text, -1) {
		// Year spans like "2015 - 2019" satisfy the phone shape too.
		if periodPattern.MatchString(candidate) {
			continue
		}
		info.Phone = strings.TrimSpace(candidate)
		break
	}
	if m := birthPattern.FindStringSubmatch(text); m != nil {
		if year, err := strconv.Atoi(m[1]); err == nil {
			info.BirthYear = year
		}
	}
	info.Name = guessName(lines)

	info.WorkExperiences, info.Educations = scanSections(lines)
	info.TotalExperienceYears = totalExperienceYears(info.WorkExperiences)

	if len(info.WorkExperiences) > 0 {
		// The first entry is assumed to be the most recent one.
		info.CurrentCompany = info.WorkExperiences[0].Company
		info.CurrentPosition = info.WorkExperiences[0].Position
		for _, work := range info.WorkExperiences[1:] {
			if work.Company != "" {
				info.PreviousCompanies = append(info.PreviousCompanies, work.Company)
			}
		}
	}

	for _, keyword := range skillKeywords {
		if containsWord(lower, keyword) {
			info.Skills = append(info.Skills, keyword)
		}
	}
	for _, keyword := range languageKeywords {
		if strings.Contains(lower, keyword) {
			info.Languages = append(info.Languages, keyword)
		}
	}
	for _, line := range lines {
		lowerLine := strings.ToLower(line)
		if strings.Contains(lowerLine, "certified") || strings.Contains(lowerLine, "certificate") || strings.Contains(lowerLine, "certification") {
			info.Certifications = append(info.Certifications, strings.TrimSpace(line))
		}
	}

	return info
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// guessName takes the first short line that looks like a person rather
// than contact data or a heading.
func guessName(lines []string) string {
	for i, line := range lines {
		if i > 4 {
			break
		}
		if len(line) > 60 || strings.ContainsAny(line, "@0123456789") {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "resume") || strings.Contains(lower, "curriculum") {
			continue
		}
		return line
	}
	return ""
}

type section int

const (
	sectionNone section = iota
	sectionExperience
	sectionEducation
)

// scanSections walks the lines splitting them into experience and
// education entries based on the usual resume headings.
func scanSections(lines []string) ([]resume.WorkExperience, []resume.Education) {
	var (
		works      []resume.WorkExperience
		educations []resume.Education
		current    = sectionNone
	)

	for _, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case len(line) < 40 && (strings.Contains(lower, "experience") || strings.Contains(lower, "employment")):
			current = sectionExperience
			continue
		case len(line) < 40 && strings.Contains(lower, "education"):
			current = sectionEducation
			continue
		case len(line) < 40 && (strings.Contains(lower, "skill") || strings.Contains(lower, "certific") || strings.Contains(lower, "language")):
			current = sectionNone
			continue
		}

		period := periodPattern.FindString(line)
		switch current {
		case sectionExperience:
			// A line with a year but no parseable span is still an entry;
			// its duration falls back to one year later on.
			if period == "" && !yearPattern.MatchString(line) {
				continue
			}
			entry := resume.WorkExperience{Period: period}
			rest := periodPattern.ReplaceAllString(line, "")
			if period == "" {
				rest = yearPattern.ReplaceAllString(rest, "")
			}
			entry.Company, entry.Position = splitCompanyPosition(strings.TrimSpace(rest))
			works = append(works, entry)
		case sectionEducation:
			level := resume.DetectEducationLevel(line)
			if level == resume.EducationUnknown && period == "" {
				continue
			}
			educations = append(educations, resume.Education{
				Institution: strings.Trim(strings.TrimSpace(periodPattern.ReplaceAllString(line, "")), ",-– "),
				Period:      period,
				Level:       level,
			})
		}
	}

	return works, educations
}

// splitCompanyPosition splits "Acme Corp, Senior Engineer" or
// "Senior Engineer at Acme Corp" style lines.
func splitCompanyPosition(text string) (company, position string) {
	text = strings.Trim(text, ",-– ")
	if text == "" {
		return "", ""
	}
	if idx := strings.Index(strings.ToLower(text), " at "); idx >= 0 {
		return strings.TrimSpace(text[idx+4:]), strings.TrimSpace(text[:idx])
	}
	if parts := strings.SplitN(text, ",", 2); len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return text, ""
}

// totalExperienceYears sums the year spans of all work entries. Entries
// whose period cannot be parsed count as one year, matching how the
// rest of the intake flow has always estimated them.
func totalExperienceYears(works []resume.WorkExperience) float64 {
	if len(works) == 0 {
		return 0
	}

	totalMonths := 0
	currentYear := time.Now().Year()
	for _, work := range works {
		m := periodPattern.FindStringSubmatch(strings.ToLower(work.Period))
		if m == nil {
			totalMonths += 12
			continue
		}
		start, err := strconv.Atoi(m[1])
		if err != nil {
			totalMonths += 12
			continue
		}
		end := currentYear
		if y, err := strconv.Atoi(m[2]); err == nil {
			end = y
		}
		if end < start {
			totalMonths += 12
			continue
		}
		totalMonths += (end - start) * 12
	}

	return float64(totalMonths*10/12) / 10
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
