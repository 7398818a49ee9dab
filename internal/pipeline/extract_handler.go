package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"

	"resumehub/internal/database"
	"resumehub/internal/resume"
	"resumehub/internal/store"
	"resumehub/internal/tasks"
)

// ObjectFetcher is the slice of the storage client the pipeline needs.
type ObjectFetcher interface {
	GetObject(ctx context.Context, objectKey string) (*minio.Object, error)
}

// ExtractTaskHandler consumes resume extraction tasks: it pulls the PDF
// from object storage, derives structured fields and writes them back,
// walking the status machine uploading → processing → analyzing →
// completed (or failed on the final attempt).
type ExtractTaskHandler struct {
	store       *store.ResumeStore
	storage     ObjectFetcher
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewExtractTaskHandler builds the task handler.
func NewExtractTaskHandler(
	resumeStore *store.ResumeStore,
	storageClient ObjectFetcher,
	redisClient *redis.Client,
	logger *slog.Logger,
) *ExtractTaskHandler {
	return &ExtractTaskHandler{
		store:       resumeStore,
		storage:     storageClient,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask implements asynq.Handler.
func (h *ExtractTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	var payload tasks.ResumeExtractPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("resume_id", payload.ResumeID),
	)
	log.Info("starting resume extraction task")

	row, err := h.store.GetAny(ctx, payload.ResumeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}
	if row.DeletedAt.Valid {
		log.Info("resume soft-deleted, skipping task")
		return nil
	}
	if resume.Status(row.Status).Terminal() {
		log.Info("resume already in terminal state, skipping task", slog.String("status", row.Status))
		return nil
	}

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAttempt(ctx) {
			return
		}

		failed := resume.StatusFailed
		if _, err := h.store.Update(ctx, payload.ResumeID, store.UpdateParams{Status: &failed}); err != nil {
			log.Error("mark resume failed", slog.Any("error", err))
		}
		if err := publishStatus(ctx, h.redisClient, StatusNotifyMessage{
			ResumeID:      payload.ResumeID,
			Status:        string(resume.StatusFailed),
			CorrelationID: payload.CorrelationID,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}); err != nil {
			log.Error("publish failure notification", slog.Any("error", err))
		}
	}()

	if err := h.advanceStatus(ctx, row, resume.StatusProcessing); err != nil {
		return err
	}

	filePath, cleanup, err := h.fetchToTempFile(ctx, payload.ObjectKey)
	if err != nil {
		log.Error("fetch stored pdf failed", slog.Any("error", err))
		return err
	}
	defer cleanup()

	text, err := ExtractText(filePath)
	if err != nil {
		log.Error("extract text failed", slog.Any("error", err))
		return err
	}

	if err := h.advanceStatus(ctx, row, resume.StatusAnalyzing); err != nil {
		return err
	}

	info := ParseResumeText(text)
	score := FitScore(info)
	summary := Summary(info, score)

	params, err := updateFromExtraction(info, text, score, summary)
	if err != nil {
		log.Error("encode extraction results failed", slog.Any("error", err))
		return err
	}
	if _, err := h.store.Update(ctx, payload.ResumeID, params); err != nil {
		log.Error("store extraction results failed", slog.Any("error", err))
		return err
	}

	if err := h.store.ReplaceEducations(ctx, payload.ResumeID, educationRows(info)); err != nil {
		log.Error("store educations failed", slog.Any("error", err))
		return err
	}

	if err := publishStatus(ctx, h.redisClient, StatusNotifyMessage{
		ResumeID:      payload.ResumeID,
		Status:        string(resume.StatusCompleted),
		CorrelationID: payload.CorrelationID,
		FitScore:      &score,
	}); err != nil {
		// The record is complete; a lost notification is not worth a retry.
		log.Error("publish completion notification", slog.Any("error", err))
	}

	log.Info("resume extraction completed",
		slog.Float64("fit_score", score),
		slog.Float64("experience_years", info.TotalExperienceYears),
	)
	return nil
}

// advanceStatus moves the row forward to the target stage. Retried tasks
// may already be past it, in which case the write is skipped.
func (h *ExtractTaskHandler) advanceStatus(ctx context.Context, row *database.Resume, target resume.Status) error {
	current := resume.Status(row.Status)
	if !current.CanTransition(target) {
		return nil
	}
	if _, err := h.store.Update(ctx, row.ID, store.UpdateParams{Status: &target}); err != nil {
		return fmt.Errorf("advance status to %s: %w", target, err)
	}
	row.Status = string(target)
	return nil
}

func (h *ExtractTaskHandler) fetchToTempFile(ctx context.Context, objectKey string) (string, func(), error) {
	obj, err := h.storage.GetObject(ctx, objectKey)
	if err != nil {
		return "", nil, err
	}
	defer obj.Close()

	tmp, err := os.CreateTemp("", "resume-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("download object %q: %w", objectKey, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

func updateFromExtraction(info resume.ExtractedInfo, rawText string, score float64, summary string) (store.UpdateParams, error) {
	completed := resume.StatusCompleted
	params := store.UpdateParams{
		Status:               &completed,
		TotalExperienceYears: &info.TotalExperienceYears,
		AIFitScore:           &score,
		AISummary:            &summary,
		RawText:              &rawText,
	}

	if info.Name != "" {
		params.Name = &info.Name
	}
	if info.Email != "" {
		params.Email = &info.Email
	}
	if info.Phone != "" {
		params.Phone = &info.Phone
	}
	if info.Address != "" {
		params.Address = &info.Address
	}
	if info.BirthYear != 0 {
		params.BirthYear = &info.BirthYear
	}
	if info.CurrentPosition != "" {
		params.CurrentPosition = &info.CurrentPosition
	}
	if info.CurrentCompany != "" {
		params.CurrentCompany = &info.CurrentCompany
	}
	if level := int(info.HighestEducation()); level > 0 {
		params.EducationLevel = &level
	}
	for _, edu := range info.Educations {
		if edu.Level == info.HighestEducation() && edu.Institution != "" {
			params.University = &edu.Institution
			break
		}
	}

	var err error
	if params.PreviousCompanies, err = marshalJSON(info.PreviousCompanies); err != nil {
		return params, err
	}
	if params.Skills, err = marshalJSON(info.Skills); err != nil {
		return params, err
	}
	if params.Certifications, err = marshalJSON(info.Certifications); err != nil {
		return params, err
	}
	if params.Languages, err = marshalJSON(info.Languages); err != nil {
		return params, err
	}
	if params.ParsedData, err = marshalJSON(info); err != nil {
		return params, err
	}
	return params, nil
}

func marshalJSON(v any) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal extraction payload: %w", err)
	}
	return datatypes.JSON(data), nil
}

func educationRows(info resume.ExtractedInfo) []database.ResumeEducation {
	rows := make([]database.ResumeEducation, 0, len(info.Educations))
	for _, edu := range info.Educations {
		if edu.Institution == "" {
			continue
		}
		rows = append(rows, database.ResumeEducation{
			InstitutionName: edu.Institution,
			Degree:          edu.Degree,
			Period:          edu.Period,
			EducationLevel:  int(edu.Level),
		})
	}
	return rows
}

// isFinalAttempt reports whether this is the last delivery of the task.
func isFinalAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}
