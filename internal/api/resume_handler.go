package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"

	"resumehub/internal/api/middleware"
	"resumehub/internal/config"
	"resumehub/internal/database"
	"resumehub/internal/resume"
	"resumehub/internal/store"
	"resumehub/internal/tasks"
)

// ObjectStorage is the slice of the storage client the handlers need.
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ResumeHandler serves the resume intake and query API.
type ResumeHandler struct {
	store       *store.ResumeStore
	storage     ObjectStorage
	queue       TaskEnqueuer
	redisClient *redis.Client
	logger      *slog.Logger

	maxBytes  int64
	maxPerDay int
	clamdAddr string
	maxRetry  int
}

// NewResumeHandler wires the handler from config.
func NewResumeHandler(
	resumeStore *store.ResumeStore,
	storageClient ObjectStorage,
	queue TaskEnqueuer,
	redisClient *redis.Client,
	logger *slog.Logger,
	cfg *config.Config,
) *ResumeHandler {
	return &ResumeHandler{
		store:       resumeStore,
		storage:     storageClient,
		queue:       queue,
		redisClient: redisClient,
		logger:      logger,
		maxBytes:    cfg.Upload.MaxBytes,
		maxPerDay:   cfg.Upload.MaxPerDay,
		clamdAddr:   cfg.Upload.ClamdAddr,
		maxRetry:    cfg.Pipeline.MaxRetry,
	}
}

type resumeResponse struct {
	ID                   string         `json:"id"`
	Status               string         `json:"status"`
	OriginalFilename     string         `json:"original_filename"`
	FilePath             string         `json:"file_path"`
	FileSize             int64          `json:"file_size,omitempty"`
	Name                 string         `json:"name,omitempty"`
	Email                string         `json:"email,omitempty"`
	Phone                string         `json:"phone,omitempty"`
	Address              string         `json:"address,omitempty"`
	BirthYear            *int           `json:"birth_year,omitempty"`
	TotalExperienceYears *float64       `json:"total_experience_years,omitempty"`
	CurrentPosition      string         `json:"current_position,omitempty"`
	CurrentCompany       string         `json:"current_company,omitempty"`
	PreviousCompanies    datatypes.JSON `json:"previous_companies,omitempty"`
	EducationLevel       *int           `json:"education_level,omitempty"`
	University           string         `json:"university,omitempty"`
	GraduationYear       *int           `json:"graduation_year,omitempty"`
	Skills               datatypes.JSON `json:"skills,omitempty"`
	Certifications       datatypes.JSON `json:"certifications,omitempty"`
	Languages            datatypes.JSON `json:"languages,omitempty"`
	AISummary            string         `json:"ai_summary,omitempty"`
	AIFitScore           *float64       `json:"ai_fit_score,omitempty"`
	UploadedBy           string         `json:"uploaded_by,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            *time.Time     `json:"deleted_at,omitempty"`
}

func newResumeResponse(row database.Resume) resumeResponse {
	resp := resumeResponse{
		ID:                   row.ID,
		Status:               row.Status,
		OriginalFilename:     row.OriginalFilename,
		FilePath:             row.FilePath,
		FileSize:             row.FileSize,
		Name:                 row.Name,
		Email:                row.Email,
		Phone:                row.Phone,
		Address:              row.Address,
		BirthYear:            row.BirthYear,
		TotalExperienceYears: row.TotalExperienceYears,
		CurrentPosition:      row.CurrentPosition,
		CurrentCompany:       row.CurrentCompany,
		PreviousCompanies:    row.PreviousCompanies,
		EducationLevel:       row.EducationLevel,
		University:           row.University,
		GraduationYear:       row.GraduationYear,
		Skills:               row.Skills,
		Certifications:       row.Certifications,
		Languages:            row.Languages,
		AISummary:            row.AISummary,
		AIFitScore:           row.AIFitScore,
		UploadedBy:           row.UploadedBy,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if row.DeletedAt.Valid {
		t := row.DeletedAt.Time
		resp.DeletedAt = &t
	}
	return resp
}

// UploadResume accepts a multipart PDF, stores it, creates the record
// with status uploading and hands off to the extraction pipeline.
func (h *ResumeHandler) UploadResume(c *gin.Context) {
	log := middleware.LoggerFromContext(c)

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if strings.TrimSpace(file.Filename) == "" {
		BadRequest(c, "missing filename")
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		BadRequest(c, "only pdf resumes are supported")
		return
	}
	if file.Size > h.maxBytes {
		BadRequest(c, fmt.Sprintf("file too large, max %d bytes", h.maxBytes))
		return
	}

	if ok, msg := h.checkDailyLimit(c); !ok {
		Forbidden(c, msg)
		return
	}

	if h.clamdAddr != "" {
		infected, err := h.scanUpload(file)
		if err != nil {
			log.Error("scan file", slog.String("error", err.Error()))
			Internal(c, "failed to scan file")
			return
		}
		if infected {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer reader.Close()

	objectKey := fmt.Sprintf("uploads/%s_%s", uuid.NewString(), filepath.Base(file.Filename))
	ctx := c.Request.Context()
	if _, err := h.storage.UploadFile(ctx, objectKey, reader, file.Size, "application/pdf"); err != nil {
		log.Error("upload file", slog.String("error", err.Error()))
		Internal(c, "failed to store file")
		return
	}

	row, err := h.store.Create(ctx, store.CreateParams{
		OriginalFilename: file.Filename,
		FilePath:         objectKey,
		FileSize:         file.Size,
		UploadedBy:       strings.TrimSpace(c.Query("uploaded_by")),
	})
	if err != nil {
		// The object has no owning row yet, remove it again.
		if cleanupErr := h.storage.DeleteObject(ctx, objectKey); cleanupErr != nil {
			log.Error("cleanup orphan object", slog.String("error", cleanupErr.Error()))
		}
		if store.IsValidation(err) {
			BadRequest(c, err.Error())
			return
		}
		log.Error("create resume", slog.String("error", err.Error()))
		Internal(c, "failed to create resume")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewResumeExtractTask(row.ID, objectKey, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}
	if _, err := h.queue.Enqueue(task, asynq.MaxRetry(h.maxRetry)); err != nil {
		log.Error("enqueue extraction", slog.String("error", err.Error()), slog.String("resume_id", row.ID))
		failed := resume.StatusFailed
		if _, updateErr := h.store.Update(ctx, row.ID, store.UpdateParams{Status: &failed}); updateErr != nil {
			log.Error("mark resume failed", slog.String("error", updateErr.Error()))
		}
		Internal(c, "failed to enqueue extraction")
		return
	}

	log.Info("resume accepted",
		slog.String("resume_id", row.ID),
		slog.String("object_key", objectKey),
		slog.Int64("file_size", file.Size),
	)

	c.JSON(http.StatusCreated, gin.H{
		"resume_id": row.ID,
		"status":    row.Status,
		"resume":    newResumeResponse(*row),
	})
}

// checkDailyLimit enforces the per-client daily upload cap via a Redis
// counter. Redis being unavailable never blocks uploads.
func (h *ResumeHandler) checkDailyLimit(c *gin.Context) (bool, string) {
	if h.redisClient == nil || h.maxPerDay <= 0 {
		return true, ""
	}

	ctx := c.Request.Context()
	key := fmt.Sprintf("upload_count:%s:%s", c.ClientIP(), time.Now().UTC().Format("2006-01-02"))
	count, err := h.redisClient.Incr(ctx, key).Result()
	if err != nil {
		middleware.LoggerFromContext(c).Warn("upload counter unavailable", slog.String("error", err.Error()))
		return true, ""
	}
	if count == 1 {
		h.redisClient.Expire(ctx, key, 24*time.Hour)
	}
	if count > int64(h.maxPerDay) {
		return false, "daily upload limit reached"
	}
	return true, ""
}

func (h *ResumeHandler) scanUpload(file *multipart.FileHeader) (bool, error) {
	reader, err := file.Open()
	if err != nil {
		return false, fmt.Errorf("open file for scan: %w", err)
	}
	defer reader.Close()

	clamdClient := clamd.NewClamd(h.clamdAddr)
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamdClient.ScanStream(reader, abortChan)
	if err != nil {
		return false, fmt.Errorf("scan stream: %w", err)
	}
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return true, nil
		}
	}
	return false, nil
}

// ListResumes returns the non-soft-deleted resumes with optional filters:
// status, min_experience, age (max), education_level (min), limit, offset.
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	params, err := filterFromQuery(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	rows, err := h.store.Filter(c.Request.Context(), params)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list resumes", slog.String("error", err.Error()))
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, newResumeResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{
		"total_count": len(items),
		"limit":       params.Limit,
		"offset":      params.Offset,
		"resumes":     items,
	})
}

func filterFromQuery(c *gin.Context) (store.FilterParams, error) {
	params := store.FilterParams{Limit: 20}

	if raw := c.Query("status"); raw != "" {
		status := resume.Status(strings.ToLower(raw))
		if !status.Valid() {
			return params, fmt.Errorf("unknown status %q", raw)
		}
		params.Status = status
	}
	if raw := c.Query("min_experience"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return params, fmt.Errorf("invalid min_experience %q", raw)
		}
		params.MinExperience = &v
	}
	if raw := c.Query("age"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return params, fmt.Errorf("invalid age %q", raw)
		}
		params.MaxAge = &v
	}
	if raw := c.Query("education_level"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 6 {
			return params, fmt.Errorf("invalid education_level %q", raw)
		}
		params.MinEducationLevel = &v
	}
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return params, fmt.Errorf("invalid limit %q", raw)
		}
		if v > 200 {
			v = 200
		}
		params.Limit = v
	}
	if raw := c.Query("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return params, fmt.Errorf("invalid offset %q", raw)
		}
		params.Offset = v
	}

	return params, nil
}

// GetResume returns one resume; soft-deleted rows read as 404.
func (h *ResumeHandler) GetResume(c *gin.Context) {
	row, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		middleware.LoggerFromContext(c).Error("query resume", slog.String("error", err.Error()))
		Internal(c, "failed to query resume")
		return
	}
	c.JSON(http.StatusOK, gin.H{"resume": newResumeResponse(*row)})
}

// SearchResumes looks up resumes whose name contains the path segment.
func (h *ResumeHandler) SearchResumes(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		BadRequest(c, "missing name")
		return
	}

	rows, err := h.store.Filter(c.Request.Context(), store.FilterParams{Name: name, Limit: 100})
	if err != nil {
		middleware.LoggerFromContext(c).Error("search resumes", slog.String("error", err.Error()))
		Internal(c, "failed to search resumes")
		return
	}

	items := make([]resumeResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, newResumeResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{
		"search_term":  name,
		"result_count": len(items),
		"resumes":      items,
	})
}

type updateResumeRequest struct {
	Status               *string        `json:"status"`
	Name                 *string        `json:"name"`
	Email                *string        `json:"email"`
	Phone                *string        `json:"phone"`
	Address              *string        `json:"address"`
	BirthYear            *int           `json:"birth_year"`
	TotalExperienceYears *float64       `json:"total_experience_years"`
	CurrentPosition      *string        `json:"current_position"`
	CurrentCompany       *string        `json:"current_company"`
	PreviousCompanies    datatypes.JSON `json:"previous_companies"`
	EducationLevel       *int           `json:"education_level"`
	University           *string        `json:"university"`
	GraduationYear       *int           `json:"graduation_year"`
	Skills               datatypes.JSON `json:"skills"`
	Certifications       datatypes.JSON `json:"certifications"`
	Languages            datatypes.JSON `json:"languages"`
	AISummary            *string        `json:"ai_summary"`
	AIFitScore           *float64       `json:"ai_fit_score"`
	RawText              *string        `json:"raw_text"`
	ParsedData           datatypes.JSON `json:"parsed_data"`
}

func (r updateResumeRequest) toParams() store.UpdateParams {
	params := store.UpdateParams{
		Name:                 r.Name,
		Email:                r.Email,
		Phone:                r.Phone,
		Address:              r.Address,
		BirthYear:            r.BirthYear,
		TotalExperienceYears: r.TotalExperienceYears,
		CurrentPosition:      r.CurrentPosition,
		CurrentCompany:       r.CurrentCompany,
		PreviousCompanies:    r.PreviousCompanies,
		EducationLevel:       r.EducationLevel,
		University:           r.University,
		GraduationYear:       r.GraduationYear,
		Skills:               r.Skills,
		Certifications:       r.Certifications,
		Languages:            r.Languages,
		AISummary:            r.AISummary,
		AIFitScore:           r.AIFitScore,
		RawText:              r.RawText,
		ParsedData:           r.ParsedData,
	}
	if r.Status != nil {
		status := resume.Status(strings.ToLower(*r.Status))
		params.Status = &status
	}
	return params
}

// UpdateResume is the pipeline callback surface: a partial update over the
// allowed mutable fields. Illegal status transitions are rejected.
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	var req updateResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	row, err := h.store.Update(c.Request.Context(), c.Param("id"), req.toParams())
	if err != nil {
		switch {
		case store.IsValidation(err):
			BadRequest(c, err.Error())
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "resume not found")
		default:
			middleware.LoggerFromContext(c).Error("update resume", slog.String("error", err.Error()))
			Internal(c, "failed to update resume")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"resume": newResumeResponse(*row)})
}

// DeleteResume soft-deletes by default and hard-deletes with ?hard=true.
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	id := c.Param("id")
	hard := strings.EqualFold(c.Query("hard"), "true")
	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c)

	if hard {
		row, err := h.store.GetAny(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				NotFound(c, "resume not found")
				return
			}
			log.Error("query resume", slog.String("error", err.Error()))
			Internal(c, "failed to query resume")
			return
		}
		if err := h.store.HardDelete(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				NotFound(c, "resume not found")
				return
			}
			log.Error("hard delete resume", slog.String("error", err.Error()))
			Internal(c, "failed to delete resume")
			return
		}
		if err := h.storage.DeleteObject(ctx, row.FilePath); err != nil {
			// The row is gone either way; losing the object cleanup is
			// logged, not surfaced.
			log.Error("delete stored file", slog.String("error", err.Error()))
		}
	} else {
		if _, err := h.store.SoftDelete(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				NotFound(c, "resume not found")
				return
			}
			log.Error("soft delete resume", slog.String("error", err.Error()))
			Internal(c, "failed to delete resume")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"deleted_id": id, "hard": hard})
}

// DeleteAllResumes clears the table, soft by default.
func (h *ResumeHandler) DeleteAllResumes(c *gin.Context) {
	hard := strings.EqualFold(c.Query("hard"), "true")
	ctx := c.Request.Context()

	var (
		count int64
		err   error
	)
	if hard {
		count, err = h.store.HardDeleteAll(ctx)
	} else {
		count, err = h.store.SoftDeleteAll(ctx)
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("delete all resumes", slog.String("error", err.Error()))
		Internal(c, "failed to delete resumes")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted_count": count, "hard": hard})
}

type educationResponse struct {
	ID              uint   `json:"id"`
	ResumeID        string `json:"resume_id"`
	InstitutionName string `json:"institution_name"`
	Degree          string `json:"degree,omitempty"`
	Period          string `json:"period,omitempty"`
	EducationLevel  int    `json:"education_level"`
}

func newEducationResponse(row database.ResumeEducation) educationResponse {
	return educationResponse{
		ID:              row.ID,
		ResumeID:        row.ResumeID,
		InstitutionName: row.InstitutionName,
		Degree:          row.Degree,
		Period:          row.Period,
		EducationLevel:  row.EducationLevel,
	}
}

// GetResumeEducation lists every detected education entry for a resume.
func (h *ResumeHandler) GetResumeEducation(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.store.Get(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to query resume")
		return
	}

	rows, err := h.store.EducationsByResume(ctx, id)
	if err != nil {
		middleware.LoggerFromContext(c).Error("query educations", slog.String("error", err.Error()))
		Internal(c, "failed to query educations")
		return
	}

	items := make([]educationResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, newEducationResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{
		"resume_id":         id,
		"education_count":   len(items),
		"education_details": items,
	})
}

// GetFinalEducation returns the highest detected education entry.
func (h *ResumeHandler) GetFinalEducation(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.store.Get(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to query resume")
		return
	}

	row, err := h.store.FinalEducation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"resume_id": id, "final_education": nil})
			return
		}
		middleware.LoggerFromContext(c).Error("query final education", slog.String("error", err.Error()))
		Internal(c, "failed to query final education")
		return
	}

	c.JSON(http.StatusOK, gin.H{"resume_id": id, "final_education": newEducationResponse(*row)})
}

// GetDownloadLink returns a presigned URL for the stored source PDF.
func (h *ResumeHandler) GetDownloadLink(c *gin.Context) {
	row, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to query resume")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), row.FilePath, 5*time.Minute)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate download link", slog.String("error", err.Error()))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}
