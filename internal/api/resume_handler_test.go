package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumehub/internal/config"
	"resumehub/internal/database"
	"resumehub/internal/resume"
	"resumehub/internal/store"
)

const testInternalSecret = "test-secret"

type fakeStorage struct {
	uploaded map[string][]byte
	deleted  []string

	uploadErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	return &minio.UploadInfo{}, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

type fakeQueue struct {
	enqueued []*asynq.Task

	enqueueErr error
}

func (q *fakeQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.enqueueErr != nil {
		return nil, q.enqueueErr
	}
	q.enqueued = append(q.enqueued, task)
	return &asynq.TaskInfo{}, nil
}

type testEnv struct {
	router  *gin.Engine
	store   *store.ResumeStore
	storage *fakeStorage
	queue   *fakeQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.Resume{}, &database.ResumeEducation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{}
	cfg.API.InternalSecret = testInternalSecret
	cfg.Upload.MaxBytes = 10 * 1024 * 1024
	cfg.Pipeline.MaxRetry = 3

	env := &testEnv{
		store:   store.NewResumeStore(db),
		storage: newFakeStorage(),
		queue:   &fakeQueue{},
	}
	env.router = gin.New()
	RegisterRoutes(env.router, env.store, env.storage, env.queue, nil, logger, cfg)
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func newMultipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func uploadResume(t *testing.T, env *testEnv) string {
	t.Helper()
	body, contentType := newMultipartUpload(t, "cv.pdf", []byte("%PDF-1.4 test"))
	w := env.do(t, http.MethodPost, "/v1/extract-and-save-resume", body, map[string]string{"Content-Type": contentType})
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		ResumeID string `json:"resume_id"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if resp.ResumeID == "" {
		t.Fatal("expected resume_id in response")
	}
	return resp.ResumeID
}

func TestUploadResume_Accepted(t *testing.T) {
	env := newTestEnv(t)
	id := uploadResume(t, env)

	if len(env.storage.uploaded) != 1 {
		t.Fatalf("expected one stored object, got %d", len(env.storage.uploaded))
	}
	if len(env.queue.enqueued) != 1 {
		t.Fatalf("expected one enqueued task, got %d", len(env.queue.enqueued))
	}

	row, err := env.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.Status != string(resume.StatusUploading) {
		t.Fatalf("expected status uploading, got %q", row.Status)
	}
	if !strings.HasPrefix(row.FilePath, "uploads/") {
		t.Fatalf("unexpected object key %q", row.FilePath)
	}
}

func TestUploadResume_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/extract-and-save-resume", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUploadResume_RejectsNonPDF(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := newMultipartUpload(t, "cv.docx", []byte("not a pdf"))
	w := env.do(t, http.MethodPost, "/v1/extract-and-save-resume", body, map[string]string{"Content-Type": contentType})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestUploadResume_EnqueueFailureMarksFailed(t *testing.T) {
	env := newTestEnv(t)
	env.queue.enqueueErr = fmt.Errorf("redis down")

	body, contentType := newMultipartUpload(t, "cv.pdf", []byte("%PDF-1.4 test"))
	w := env.do(t, http.MethodPost, "/v1/extract-and-save-resume", body, map[string]string{"Content-Type": contentType})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	rows, err := env.store.Filter(context.Background(), store.FilterParams{Status: resume.StatusFailed})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the resume marked failed, got %d rows", len(rows))
	}
}

func TestGetResume(t *testing.T) {
	env := newTestEnv(t)
	id := uploadResume(t, env)

	w := env.do(t, http.MethodGet, "/v1/resumes/"+id, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/v1/resumes/does-not-exist", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListResumes_FilterValidation(t *testing.T) {
	env := newTestEnv(t)
	uploadResume(t, env)

	w := env.do(t, http.MethodGet, "/v1/resumes?status=uploading", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		TotalCount int `json:"total_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalCount != 1 {
		t.Fatalf("expected 1 resume, got %d", resp.TotalCount)
	}

	for _, target := range []string{
		"/v1/resumes?status=archived",
		"/v1/resumes?min_experience=-1",
		"/v1/resumes?education_level=9",
		"/v1/resumes?limit=abc",
	} {
		if w := env.do(t, http.MethodGet, target, nil, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, w.Code)
		}
	}
}

func TestSearchResumes(t *testing.T) {
	env := newTestEnv(t)
	id := uploadResume(t, env)

	name := "Bob Smith"
	if _, err := env.store.Update(context.Background(), id, store.UpdateParams{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}

	w := env.do(t, http.MethodGet, "/v1/resumes/search/smith", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		ResultCount int `json:"result_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ResultCount != 1 {
		t.Fatalf("expected 1 match, got %d", resp.ResultCount)
	}
}

func TestUpdateResume_RequiresInternalSecret(t *testing.T) {
	env := newTestEnv(t)
	id := uploadResume(t, env)

	payload := strings.NewReader(`{"status":"processing"}`)
	w := env.do(t, http.MethodPatch, "/v1/resumes/"+id, payload, map[string]string{"Content-Type": "application/json"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", w.Code)
	}

	payload = strings.NewReader(`{"status":"processing"}`)
	w = env.do(t, http.MethodPatch, "/v1/resumes/"+id, payload, map[string]string{
		"Content-Type":      "application/json",
		"X-Internal-Secret": testInternalSecret,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with secret, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestUpdateResume_IllegalTransition(t *testing.T) {
	env := newTestEnv(t)
	id := uploadResume(t, env)

	payload := strings.NewReader(`{"status":"completed"}`)
	w := env.do(t, http.MethodPatch, "/v1/resumes/"+id, payload, map[string]string{
		"Content-Type":      "application/json",
		"X-Internal-Secret": testInternalSecret,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for uploading -> completed, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteResume_SoftThenHard(t *testing.T) {
	env := newTestEnv(t)
	id := uploadResume(t, env)

	w := env.do(t, http.MethodDelete, "/v1/resumes/"+id, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("soft delete: expected 200, got %d", w.Code)
	}

	// Default reads hide the row now.
	if w := env.do(t, http.MethodGet, "/v1/resumes/"+id, nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after soft delete, got %d", w.Code)
	}

	// Hard delete still reaches it and removes the stored object.
	w = env.do(t, http.MethodDelete, "/v1/resumes/"+id+"?hard=true", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("hard delete: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if len(env.storage.deleted) != 1 {
		t.Fatalf("expected stored object removed, got %v", env.storage.deleted)
	}

	if _, err := env.store.GetAny(context.Background(), id); err != store.ErrNotFound {
		t.Fatalf("expected row gone, got %v", err)
	}
}

func TestDeleteResume_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodDelete, "/v1/resumes/missing", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("soft: expected 404, got %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/v1/resumes/missing?hard=true", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("hard: expected 404, got %d", w.Code)
	}
}

func TestDeleteAllResumes(t *testing.T) {
	env := newTestEnv(t)
	uploadResume(t, env)
	uploadResume(t, env)

	w := env.do(t, http.MethodDelete, "/v1/resumes", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		DeletedCount int64 `json:"deleted_count"`
		Hard         bool  `json:"hard"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DeletedCount != 2 || resp.Hard {
		t.Fatalf("expected 2 soft deletions, got %+v", resp)
	}
}

func TestGetResumeEducation(t *testing.T) {
	env := newTestEnv(t)
	id := uploadResume(t, env)
	ctx := context.Background()

	w := env.do(t, http.MethodGet, "/v1/resumes/"+id+"/education/final", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var finalResp struct {
		FinalEducation *json.RawMessage `json:"final_education"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &finalResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if finalResp.FinalEducation != nil && string(*finalResp.FinalEducation) != "null" {
		t.Fatalf("expected null final education, got %s", *finalResp.FinalEducation)
	}

	entries := []database.ResumeEducation{
		{InstitutionName: "City College", Degree: "Associate", EducationLevel: 3},
		{InstitutionName: "State University", Degree: "MSc", EducationLevel: 5},
	}
	if err := env.store.ReplaceEducations(ctx, id, entries); err != nil {
		t.Fatalf("replace educations: %v", err)
	}

	w = env.do(t, http.MethodGet, "/v1/resumes/"+id+"/education", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var listResp struct {
		EducationCount int `json:"education_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if listResp.EducationCount != 2 {
		t.Fatalf("expected 2 entries, got %d", listResp.EducationCount)
	}

	w = env.do(t, http.MethodGet, "/v1/resumes/"+id+"/education/final", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var highest struct {
		FinalEducation struct {
			InstitutionName string `json:"institution_name"`
		} `json:"final_education"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &highest); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if highest.FinalEducation.InstitutionName != "State University" {
		t.Fatalf("expected highest entry, got %q", highest.FinalEducation.InstitutionName)
	}
}

func TestGetDownloadLink(t *testing.T) {
	env := newTestEnv(t)
	id := uploadResume(t, env)

	w := env.do(t, http.MethodGet, "/v1/resumes/"+id+"/download-link", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.URL, "https://example.invalid/uploads/") {
		t.Fatalf("unexpected url %q", resp.URL)
	}
}
