package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumehub/internal/database"
	"resumehub/internal/resume"
)

// ResumeStore is the typed data access layer over the resumes table.
// Every operation runs as one transaction: commit on success, rollback
// on any error.
type ResumeStore struct {
	db *gorm.DB
}

// NewResumeStore wraps an open GORM handle.
func NewResumeStore(db *gorm.DB) *ResumeStore {
	return &ResumeStore{db: db}
}

// CreateParams carries the fields known at upload time. Name and email
// are usually absent until the extraction pipeline has run.
type CreateParams struct {
	OriginalFilename string
	FilePath         string
	FileSize         int64
	Name             string
	Email            string
	UploadedBy       string
}

// Create inserts a new row with a generated id and status "uploading".
func (s *ResumeStore) Create(ctx context.Context, p CreateParams) (*database.Resume, error) {
	if strings.TrimSpace(p.OriginalFilename) == "" {
		return nil, &ValidationError{Field: "original_filename", Reason: "must not be empty"}
	}
	if strings.TrimSpace(p.FilePath) == "" {
		return nil, &ValidationError{Field: "file_path", Reason: "must not be empty"}
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return nil, &ValidationError{Field: "email", Reason: "not an email address"}
	}

	row := database.Resume{
		ID:               uuid.NewString(),
		Status:           string(resume.StatusUploading),
		OriginalFilename: p.OriginalFilename,
		FilePath:         p.FilePath,
		FileSize:         p.FileSize,
		Name:             p.Name,
		Email:            p.Email,
		UploadedBy:       p.UploadedBy,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create resume: %w", err)
	}
	return &row, nil
}

// Get returns the row matching id, excluding soft-deleted rows.
func (s *ResumeStore) Get(ctx context.Context, id string) (*database.Resume, error) {
	var row database.Resume
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query resume %s: %w", id, err)
	}
	return &row, nil
}

// GetAny returns the row matching id regardless of soft-delete state.
// For internal callers only; the API's default view uses Get.
func (s *ResumeStore) GetAny(ctx context.Context, id string) (*database.Resume, error) {
	var row database.Resume
	err := s.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query resume %s: %w", id, err)
	}
	return &row, nil
}

// FilterParams narrows List results. Zero values mean "no constraint".
type FilterParams struct {
	Status            resume.Status
	MinExperience     *float64
	MaxAge            *int
	MinEducationLevel *int
	Name              string
	Limit             int
	Offset            int
}

const defaultListLimit = 20

// Filter returns non-soft-deleted rows matching the criteria, newest first.
func (s *ResumeStore) Filter(ctx context.Context, p FilterParams) ([]database.Resume, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := s.db.WithContext(ctx).Model(&database.Resume{})
	if p.Status != "" {
		q = q.Where("status = ?", string(p.Status))
	}
	if p.MinExperience != nil {
		q = q.Where("total_experience_years >= ?", *p.MinExperience)
	}
	if p.MaxAge != nil {
		// age <= max means born in or after (current year - max).
		q = q.Where("birth_year >= ?", time.Now().Year()-*p.MaxAge)
	}
	if p.MinEducationLevel != nil {
		q = q.Where("education_level >= ?", *p.MinEducationLevel)
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	var rows []database.Resume
	if err := q.Order("created_at DESC").Limit(limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("filter resumes: %w", err)
	}
	return rows, nil
}

// UpdateParams enumerates the mutable fields. Nil pointers (and nil JSON
// blobs) are left untouched.
type UpdateParams struct {
	Status               *resume.Status
	Name                 *string
	Email                *string
	Phone                *string
	Address              *string
	BirthYear            *int
	TotalExperienceYears *float64
	CurrentPosition      *string
	CurrentCompany       *string
	PreviousCompanies    datatypes.JSON
	EducationLevel       *int
	University           *string
	GraduationYear       *int
	Skills               datatypes.JSON
	Certifications       datatypes.JSON
	Languages            datatypes.JSON
	AISummary            *string
	AIFitScore           *float64
	RawText              *string
	ParsedData           datatypes.JSON
}

func (p UpdateParams) changes() map[string]any {
	changes := map[string]any{}
	if p.Status != nil {
		changes["status"] = string(*p.Status)
	}
	if p.Name != nil {
		changes["name"] = *p.Name
	}
	if p.Email != nil {
		changes["email"] = *p.Email
	}
	if p.Phone != nil {
		changes["phone"] = *p.Phone
	}
	if p.Address != nil {
		changes["address"] = *p.Address
	}
	if p.BirthYear != nil {
		changes["birth_year"] = *p.BirthYear
	}
	if p.TotalExperienceYears != nil {
		changes["total_experience_years"] = *p.TotalExperienceYears
	}
	if p.CurrentPosition != nil {
		changes["current_position"] = *p.CurrentPosition
	}
	if p.CurrentCompany != nil {
		changes["current_company"] = *p.CurrentCompany
	}
	if p.PreviousCompanies != nil {
		changes["previous_companies"] = p.PreviousCompanies
	}
	if p.EducationLevel != nil {
		changes["education_level"] = *p.EducationLevel
	}
	if p.University != nil {
		changes["university"] = *p.University
	}
	if p.GraduationYear != nil {
		changes["graduation_year"] = *p.GraduationYear
	}
	if p.Skills != nil {
		changes["skills"] = p.Skills
	}
	if p.Certifications != nil {
		changes["certifications"] = p.Certifications
	}
	if p.Languages != nil {
		changes["languages"] = p.Languages
	}
	if p.AISummary != nil {
		changes["ai_summary"] = *p.AISummary
	}
	if p.AIFitScore != nil {
		changes["ai_fit_score"] = *p.AIFitScore
	}
	if p.RawText != nil {
		changes["raw_text"] = *p.RawText
	}
	if p.ParsedData != nil {
		changes["parsed_data"] = p.ParsedData
	}
	return changes
}

// Update applies a partial field assignment. Status changes are checked
// against the transition table inside the same transaction that reads
// the current row; illegal transitions fail with a ValidationError.
func (s *ResumeStore) Update(ctx context.Context, id string, p UpdateParams) (*database.Resume, error) {
	if p.Email != nil && *p.Email != "" && !strings.Contains(*p.Email, "@") {
		return nil, &ValidationError{Field: "email", Reason: "not an email address"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *p.Status)}
	}

	changes := p.changes()

	var row database.Resume
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("query resume %s: %w", id, err)
		}

		if p.Status != nil {
			current := resume.Status(row.Status)
			if !current.CanTransition(*p.Status) {
				return &ValidationError{
					Field:  "status",
					Reason: fmt.Sprintf("illegal transition %s -> %s", current, *p.Status),
				}
			}
		}

		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&row).Updates(changes).Error; err != nil {
			return fmt.Errorf("update resume %s: %w", id, err)
		}
		return tx.Where("id = ?", id).First(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SoftDelete marks the row deleted. Repeating the call on an already
// soft-deleted row is a no-op returning the row unchanged.
func (s *ResumeStore) SoftDelete(ctx context.Context, id string) (*database.Resume, error) {
	var row database.Resume
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("id = ?", id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("query resume %s: %w", id, err)
		}
		if row.DeletedAt.Valid {
			return nil
		}
		if err := tx.Delete(&row).Error; err != nil {
			return fmt.Errorf("soft delete resume %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SoftDeleteAll marks every live row deleted and returns how many.
func (s *ResumeStore) SoftDeleteAll(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("1 = 1").Delete(&database.Resume{})
		if res.Error != nil {
			return fmt.Errorf("soft delete all resumes: %w", res.Error)
		}
		count = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// HardDelete permanently removes the row and its education entries.
func (s *ResumeStore) HardDelete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("id = ?", id).Delete(&database.Resume{})
		if res.Error != nil {
			return fmt.Errorf("hard delete resume %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("resume_id = ?", id).Delete(&database.ResumeEducation{}).Error; err != nil {
			return fmt.Errorf("delete educations for %s: %w", id, err)
		}
		return nil
	})
}

// HardDeleteAll permanently removes every row, soft-deleted ones included.
func (s *ResumeStore) HardDeleteAll(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("1 = 1").Delete(&database.Resume{})
		if res.Error != nil {
			return fmt.Errorf("hard delete all resumes: %w", res.Error)
		}
		count = res.RowsAffected
		return tx.Where("1 = 1").Delete(&database.ResumeEducation{}).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// PurgeDeletedBefore removes soft-deleted rows whose deletion is older
// than the cutoff. Used by the retention sweep.
func (s *ResumeStore) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Unscoped().
			Model(&database.Resume{}).
			Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("select purgeable resumes: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("resume_id IN ?", ids).Delete(&database.ResumeEducation{}).Error; err != nil {
			return fmt.Errorf("purge educations: %w", err)
		}
		res := tx.Unscoped().
			Where("id IN ?", ids).
			Delete(&database.Resume{})
		if res.Error != nil {
			return fmt.Errorf("purge deleted resumes: %w", res.Error)
		}
		count = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountDeletedBefore reports how many soft-deleted rows the retention
// sweep would purge for the given cutoff.
func (s *ResumeStore) CountDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Unscoped().
		Model(&database.Resume{}).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count deleted resumes: %w", err)
	}
	return count, nil
}

// ReplaceEducations swaps the education entries for a resume.
func (s *ResumeStore) ReplaceEducations(ctx context.Context, resumeID string, entries []database.ResumeEducation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resume_id = ?", resumeID).Delete(&database.ResumeEducation{}).Error; err != nil {
			return fmt.Errorf("clear educations for %s: %w", resumeID, err)
		}
		if len(entries) == 0 {
			return nil
		}
		for i := range entries {
			entries[i].ID = 0
			entries[i].ResumeID = resumeID
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("insert educations for %s: %w", resumeID, err)
		}
		return nil
	})
}

// EducationsByResume lists education entries, highest level first.
func (s *ResumeStore) EducationsByResume(ctx context.Context, resumeID string) ([]database.ResumeEducation, error) {
	var rows []database.ResumeEducation
	err := s.db.WithContext(ctx).
		Where("resume_id = ?", resumeID).
		Order("education_level DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query educations for %s: %w", resumeID, err)
	}
	return rows, nil
}

// FinalEducation returns the highest-level education entry, or ErrNotFound
// when the resume has none.
func (s *ResumeStore) FinalEducation(ctx context.Context, resumeID string) (*database.ResumeEducation, error) {
	var row database.ResumeEducation
	err := s.db.WithContext(ctx).
		Where("resume_id = ?", resumeID).
		Order("education_level DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query final education for %s: %w", resumeID, err)
	}
	return &row, nil
}
