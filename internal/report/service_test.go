package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careercraft-go/internal/catalog"
	"careercraft-go/internal/skills"
	"careercraft-go/internal/storage"
	"careercraft-go/internal/storage/models"
)

type fakeRecords struct {
	mu      sync.Mutex
	records map[string]*models.AnalysisRecord
	getErr  error
}

func (f *fakeRecords) GetAnalysis(_ context.Context, id string) (*models.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecords) UpdateReportStatus(_ context.Context, id, status, prefix, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return storage.ErrRecordNotFound
	}
	rec.ReportStatus, rec.ReportPrefix, rec.ReportError = status, prefix, reason
	return nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	// 名称以 failOn 结尾的对象上传失败
	failOn string
}

func (f *fakeObjects) PutBytes(_ context.Context, name string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	if f.failOn != "" && strings.HasSuffix(name, f.failOn) {
		return "", errors.New("upload " + name + " failed")
	}
	f.objects[name] = append([]byte{}, data...)
	return "etag", nil
}

func (f *fakeObjects) GetBytes(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (f *fakeObjects) GetPresignedURL(_ context.Context, name string, _ time.Duration) (string, error) {
	return "https://minio.local/reports/" + name + "?sig=x", nil
}

func (f *fakeObjects) DeleteFile(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, name)
	return nil
}

func sampleRecord() *models.AnalysisRecord {
	return &models.AnalysisRecord{
		RecordID:      "rec-1",
		SessionID:     "sess-1",
		Role:          "Data Analyst",
		SkillScore:    50,
		WeightedScore: 55,
		ATSScore:      64,
		WordCount:     120,
		Skills:        []byte(`["pandas","python","sql"]`),
		MatchedSkills: []byte(`["python","sql"]`),
		MissingSkills: []byte(`["excel","statistics"]`),
		ATSFeedback:   []byte(`["Good keyword coverage"]`),
		ATSComponents: []byte(`{"keywords":72.4,"format":60}`),
		ReportStatus:  models.ReportStatusPending,
		CreatedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestService() (*Service, *fakeRecords, *fakeObjects) {
	records := &fakeRecords{records: map[string]*models.AnalysisRecord{"rec-1": sampleRecord()}}
	objects := &fakeObjects{objects: map[string][]byte{}}
	return NewService(records, objects, catalog.MustDefault()), records, objects
}

func eventBody(t *testing.T, id string) []byte {
	t.Helper()
	body, err := json.Marshal(models.AnalysisCompletedEvent{RecordID: id, SessionID: "sess-1", Role: "Data Analyst"})
	require.NoError(t, err)
	return body
}

func TestBuildCSVRoundTrip(t *testing.T) {
	data, err := BuildCSV(sampleRecord())
	require.NoError(t, err)

	got, err := skills.ReadCSV(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "sql"}, got.Matched)
	assert.Equal(t, []string{"excel", "statistics"}, got.Missing)
	assert.Equal(t, 50, got.Score)
}

func TestBuildText(t *testing.T) {
	text := string(BuildText(sampleRecord(), catalog.MustDefault()))
	assert.Contains(t, text, "Target role: Data Analyst")
	assert.Contains(t, text, "Skill match score: 50%")
	assert.Contains(t, text, "ATS score: 64/100")
	assert.Contains(t, text, "  - statistics")
	assert.Contains(t, text, "Recommended courses:")
	assert.Contains(t, text, "Good keyword coverage")
	assert.Contains(t, text, "  format: 60\n  keywords: 72")

	plain := string(BuildText(sampleRecord(), nil))
	assert.NotContains(t, plain, "Recommended courses:")
}

func TestHandleGeneratesReports(t *testing.T) {
	svc, records, objects := newTestService()

	assert.True(t, svc.Handle(context.Background(), eventBody(t, "rec-1")))
	assert.Contains(t, objects.objects, "reports/rec-1/report.csv")
	assert.Contains(t, objects.objects, "reports/rec-1/report.txt")

	rec := records.records["rec-1"]
	assert.Equal(t, models.ReportStatusReady, rec.ReportStatus)
	assert.Equal(t, "reports/rec-1", rec.ReportPrefix)

	// 重复投递不再上传
	objects.putErr = errors.New("should not be called")
	assert.True(t, svc.Handle(context.Background(), eventBody(t, "rec-1")))
}

func TestHandleDropsBadMessages(t *testing.T) {
	svc, _, objects := newTestService()
	assert.True(t, svc.Handle(context.Background(), []byte("{not json")))
	assert.True(t, svc.Handle(context.Background(), []byte(`{"session_id":"x"}`)))
	assert.True(t, svc.Handle(context.Background(), eventBody(t, "missing")))
	assert.Empty(t, objects.objects)
}

func TestHandleUploadFailureMarksFailed(t *testing.T) {
	svc, records, objects := newTestService()
	objects.putErr = errors.New("minio unavailable")

	assert.False(t, svc.Handle(context.Background(), eventBody(t, "rec-1")))
	rec := records.records["rec-1"]
	assert.Equal(t, models.ReportStatusFailed, rec.ReportStatus)
	assert.Contains(t, rec.ReportError, "minio unavailable")
}

func TestHandleDatabaseFailureRequeues(t *testing.T) {
	svc, records, _ := newTestService()
	records.getErr = errors.New("connection refused")
	assert.False(t, svc.Handle(context.Background(), eventBody(t, "rec-1")))
}

func TestLinks(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	pending, err := svc.Links(ctx, "rec-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, pending.Status)
	assert.Empty(t, pending.CSV)
	assert.Nil(t, pending.ExpiresAt)

	require.NoError(t, svc.Generate(ctx, "rec-1"))
	ready, err := svc.Links(ctx, "rec-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusReady, ready.Status)
	assert.Contains(t, ready.CSV, "reports/rec-1/report.csv")
	assert.Contains(t, ready.Text, "reports/rec-1/report.txt")
	require.NotNil(t, ready.ExpiresAt)

	_, err = svc.Links(ctx, "nope", time.Hour)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestObjectPrefix(t *testing.T) {
	assert.Equal(t, "reports/abc", ObjectPrefix("abc"))
}

func TestPartialUploadIsCleanedUp(t *testing.T) {
	svc, records, objects := newTestService()
	objects.failOn = "report.txt"

	assert.False(t, svc.Handle(context.Background(), eventBody(t, "rec-1")))
	assert.Empty(t, objects.objects)
	assert.Equal(t, models.ReportStatusFailed, records.records["rec-1"].ReportStatus)
}

func TestDownload(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.Download(ctx, "rec-1", "report.csv")
	assert.ErrorIs(t, err, ErrReportNotReady)

	require.NoError(t, svc.Generate(ctx, "rec-1"))

	data, contentType, err := svc.Download(ctx, "rec-1", "report.csv")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeCSV, contentType)
	assert.True(t, strings.HasPrefix(string(data), "status,skill"))

	data, contentType, err = svc.Download(ctx, "rec-1", "report.txt")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeText, contentType)
	assert.Contains(t, string(data), "Career Analysis Report")

	_, _, err = svc.Download(ctx, "rec-1", "secrets.txt")
	assert.ErrorIs(t, err, ErrUnknownFile)

	_, _, err = svc.Download(ctx, "nope", "report.csv")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}
