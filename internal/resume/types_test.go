package resume

import "testing"

func TestStatusCanTransition(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusUploading, StatusProcessing, true},
		{StatusProcessing, StatusAnalyzing, true},
		{StatusAnalyzing, StatusCompleted, true},
		{StatusUploading, StatusCompleted, false},
		{StatusUploading, StatusAnalyzing, false},
		{StatusProcessing, StatusUploading, false},
		{StatusUploading, StatusFailed, true},
		{StatusProcessing, StatusFailed, true},
		{StatusAnalyzing, StatusFailed, true},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusProcessing, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusProcessing, StatusProcessing, true},
		{StatusCompleted, StatusCompleted, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusUploading, StatusProcessing, StatusAnalyzing, StatusCompleted, StatusFailed} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("archived").Valid() {
		t.Error("archived should not be valid")
	}
	if Status("Uploading").Valid() {
		t.Error("statuses are lowercase only")
	}
}

func TestDetectEducationLevel(t *testing.T) {
	cases := []struct {
		text string
		want EducationLevel
	}{
		{"State University, Bachelor of Science", EducationBachelor},
		{"MBA, Harvard Business School", EducationMaster},
		{"Ph.D in Computer Science", EducationDoctorate},
		{"Lincoln High School", EducationHighSchool},
		{"", EducationUnknown},
		{"self taught", EducationUnknown},
	}
	for _, tc := range cases {
		if got := DetectEducationLevel(tc.text); got != tc.want {
			t.Errorf("%q: got %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestHighestEducation(t *testing.T) {
	info := ExtractedInfo{Educations: []Education{
		{Institution: "City College", Level: EducationBachelor},
		{Institution: "State University", Level: EducationMaster},
	}}
	if got := info.HighestEducation(); got != EducationMaster {
		t.Fatalf("got %v, want %v", got, EducationMaster)
	}
	if got := (ExtractedInfo{}).HighestEducation(); got != EducationUnknown {
		t.Fatalf("empty: got %v", got)
	}
}
