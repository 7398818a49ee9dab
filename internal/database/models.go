package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Resume is one ingested resume. The row is created at upload time with
// status "uploading"; the extraction pipeline fills in the derived fields.
type Resume struct {
	ID     string `gorm:"type:varchar(36);primaryKey"`
	Status string `gorm:"size:32;not null;index:idx_resumes_status_created,priority:1"`

	OriginalFilename string `gorm:"size:255;not null"`
	FilePath         string `gorm:"size:512;not null"`
	FileSize         int64

	Name      string `gorm:"size:100;index:idx_resumes_name_email,priority:1"`
	Email     string `gorm:"size:255;index:idx_resumes_name_email,priority:2"`
	Phone     string `gorm:"size:50"`
	Address   string `gorm:"type:text"`
	BirthYear *int

	TotalExperienceYears *float64 `gorm:"index"`
	CurrentPosition      string   `gorm:"size:100"`
	CurrentCompany       string   `gorm:"size:200"`
	PreviousCompanies    datatypes.JSON

	EducationLevel *int   `gorm:"index"`
	University     string `gorm:"size:200"`
	GraduationYear *int

	Skills         datatypes.JSON
	Certifications datatypes.JSON
	Languages      datatypes.JSON

	AISummary  string   `gorm:"column:ai_summary;type:text"`
	AIFitScore *float64 `gorm:"column:ai_fit_score;index"`

	RawText    string `gorm:"type:text"`
	ParsedData datatypes.JSON

	UploadedBy string `gorm:"size:100"`

	CreatedAt time.Time `gorm:"index:idx_resumes_status_created,priority:2"`
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// ResumeEducation is one education entry detected for a resume.
// A resume keeps one row per entry so per-level queries stay cheap.
type ResumeEducation struct {
	ID              uint   `gorm:"primaryKey"`
	ResumeID        string `gorm:"type:varchar(36);not null;index:idx_resume_education_level,priority:1"`
	InstitutionName string `gorm:"size:200;not null"`
	Degree          string `gorm:"size:100"`
	Period          string `gorm:"size:100"`
	EducationLevel  int    `gorm:"not null;index:idx_resume_education_level,priority:2"`
}
