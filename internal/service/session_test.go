package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/credential"
	"github.com/omerdahan/angle-studio/internal/model"
	"github.com/omerdahan/angle-studio/internal/quota"
	"github.com/omerdahan/angle-studio/internal/storage"
)

// --- in-memory fakes shared by the service tests ---

type fakeUsageRepo struct {
	mu  sync.Mutex
	rec *model.UsageRecord
}

func (r *fakeUsageRepo) Get(ctx context.Context) (*model.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		return nil, storage.ErrNotFound
	}
	cp := *r.rec
	return &cp, nil
}

func (r *fakeUsageRepo) Put(ctx context.Context, rec *model.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.rec = &cp
	return nil
}

type fakeCredRepo struct {
	value string
}

func (r *fakeCredRepo) Get(ctx context.Context) (string, error) {
	if r.value == "" {
		return "", storage.ErrNotFound
	}
	return r.value, nil
}

func (r *fakeCredRepo) Put(ctx context.Context, value string) error {
	r.value = value
	return nil
}

type fakeCallRepo struct {
	mu    sync.Mutex
	calls []model.ApiCall
}

func (r *fakeCallRepo) Create(ctx context.Context, call *model.ApiCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, *call)
	return nil
}

func (r *fakeCallRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.calls)), nil
}

func (r *fakeCallRepo) CountByKind(ctx context.Context, kind model.CallKind) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.calls {
		if c.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (r *fakeCallRepo) CountFailed(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.calls {
		if !c.Success {
			n++
		}
	}
	return n, nil
}

// fakeRemote scripts the remote image service. The Nth generation call fails
// when failGenerateAt is set (1-based); the post-processing ops fail when
// opErr is set.
type fakeRemote struct {
	mu             sync.Mutex
	generates      int
	upscales       int
	failGenerateAt int
	opErr          error
}

func (c *fakeRemote) GenerateAngle(ctx context.Context, image []byte, contentType, promptHint, credential string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generates++
	if c.failGenerateAt > 0 && c.generates == c.failGenerateAt {
		return nil, errors.New("remote service unavailable")
	}
	return []byte("generated:" + promptHint), nil
}

func (c *fakeRemote) Upscale(ctx context.Context, image []byte, contentType, credential string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opErr != nil {
		return nil, c.opErr
	}
	c.upscales++
	return []byte(fmt.Sprintf("upscaled-%d", c.upscales)), nil
}

func (c *fakeRemote) RemoveBackground(ctx context.Context, image []byte, contentType, credential string) ([]byte, error) {
	if c.opErr != nil {
		return nil, c.opErr
	}
	return []byte("background-removed"), nil
}

func (c *fakeRemote) ChangeBackground(ctx context.Context, image []byte, contentType, prompt, credential string) ([]byte, error) {
	if c.opErr != nil {
		return nil, c.opErr
	}
	return []byte("scene:" + prompt), nil
}

func (c *fakeRemote) ProviderName() string { return "fake" }
func (c *fakeRemote) ModelName() string    { return "fake-model" }

// fakeProcessor validates anything except the literal "not-an-image" payload.
type fakeProcessor struct{}

func (fakeProcessor) Validate(data []byte) (string, error) {
	if string(data) == "not-an-image" {
		return "", errors.New("unsupported or non-image payload")
	}
	return "image/png", nil
}

func (fakeProcessor) Thumbnail(data []byte) ([]byte, error) {
	return []byte("thumb:" + string(data)), nil
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []model.RunStatus
}

func (r *statusRecorder) OnStatus(st model.RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, st)
}

func (r *statusRecorder) all() []model.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.RunStatus, len(r.statuses))
	copy(out, r.statuses)
	return out
}

// newTestStudio wires a Studio over in-memory fakes with no real cooldown.
func newTestStudio(t *testing.T, remote *fakeRemote, limit int) (*Studio, *quota.Ledger) {
	t.Helper()

	logger := zap.NewNop()
	ledger := quota.NewLedger(context.Background(), &fakeUsageRepo{}, limit, logger)
	creds := credential.NewStore(context.Background(), "test-key", &fakeCredRepo{}, logger)

	exports, err := storage.NewFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("creating export dir: %v", err)
	}

	s := NewStudio(Deps{
		Client:      remote,
		Ledger:      ledger,
		Credentials: creds,
		Calls:       &fakeCallRepo{},
		Processor:   fakeProcessor{},
		Exports:     exports,
		EditorURL:   "https://www.canva.com/",
		Cooldown:    0,
		CallTimeout: time.Second,
		Logger:      logger,
	})
	s.tick = time.Millisecond
	return s, ledger
}

func mustUpload(t *testing.T, s *Studio) {
	t.Helper()
	if err := s.SetUpload([]byte("product-photo")); err != nil {
		t.Fatalf("SetUpload: %v", err)
	}
}

// --- session state tests ---

func TestSetUploadRejectsNonImage(t *testing.T) {
	s, _ := newTestStudio(t, &fakeRemote{}, 10)

	err := s.SetUpload([]byte("not-an-image"))
	if !errors.Is(err, ErrNotAnImage) {
		t.Fatalf("expected ErrNotAnImage, got %v", err)
	}
	if s.HasUpload() {
		t.Fatal("rejected upload must not be installed")
	}
}

func TestSetUploadReplacesSessionWholesale(t *testing.T) {
	s, _ := newTestStudio(t, &fakeRemote{}, 10)
	mustUpload(t, s)

	if err := s.Generate(context.Background(), []string{"front"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := len(s.Results()); got != 1 {
		t.Fatalf("expected 1 result before re-upload, got %d", got)
	}

	mustUpload(t, s)
	if got := len(s.Results()); got != 0 {
		t.Fatalf("re-upload must clear results, found %d", got)
	}

	data, contentType, err := s.UploadImage()
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if string(data) != "product-photo" || contentType != "image/png" {
		t.Fatalf("unexpected upload payload %q (%s)", data, contentType)
	}
}

func TestClearUploadResetsSession(t *testing.T) {
	s, _ := newTestStudio(t, &fakeRemote{}, 10)
	mustUpload(t, s)

	if err := s.Generate(context.Background(), []string{"front"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := s.ClearUpload(); err != nil {
		t.Fatalf("ClearUpload: %v", err)
	}
	if s.HasUpload() || len(s.Results()) != 0 {
		t.Fatal("ClearUpload must drop both the upload and the results")
	}
}

func TestSnapshotReportsQuotaAndCredential(t *testing.T) {
	s, ledger := newTestStudio(t, &fakeRemote{}, 5)
	mustUpload(t, s)

	if err := s.Generate(context.Background(), []string{"front", "back"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	snap := s.Snapshot()
	if snap.Busy {
		t.Fatal("snapshot after a finished run must not be busy")
	}
	if !snap.UploadPresent || snap.ResultCount != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Used != 2 || snap.Limit != 5 || snap.Remaining != 3 {
		t.Fatalf("quota fields wrong: used=%d limit=%d remaining=%d", snap.Used, snap.Limit, snap.Remaining)
	}
	if !snap.CredentialPresent || snap.CredentialSource != credential.SourceEnv {
		t.Fatalf("credential fields wrong: %+v", snap)
	}
	if ledger.CurrentCount() != 2 {
		t.Fatalf("ledger count = %d, want 2", ledger.CurrentCount())
	}
}

func TestResultImagePriorRequiresBaseline(t *testing.T) {
	s, _ := newTestStudio(t, &fakeRemote{}, 10)
	mustUpload(t, s)

	if err := s.Generate(context.Background(), []string{"front"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	id := s.Results()[0].ID

	if _, _, err := s.ResultImage(id, true); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("prior view without an upscale should be absent, got %v", err)
	}

	data, _, err := s.ResultImage(id, false)
	if err != nil {
		t.Fatalf("ResultImage: %v", err)
	}
	if !strings.HasPrefix(string(data), "generated:") {
		t.Fatalf("unexpected payload %q", data)
	}
}

func TestResultThumbnailTracksPayload(t *testing.T) {
	s, _ := newTestStudio(t, &fakeRemote{}, 10)
	mustUpload(t, s)

	if err := s.Generate(context.Background(), []string{"front"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	id := s.Results()[0].ID

	thumb, err := s.ResultThumbnail(id)
	if err != nil {
		t.Fatalf("ResultThumbnail: %v", err)
	}
	if !strings.HasPrefix(string(thumb), "thumb:generated:") {
		t.Fatalf("unexpected thumbnail %q", thumb)
	}

	if err := s.Upscale(context.Background(), id); err != nil {
		t.Fatalf("Upscale: %v", err)
	}
	thumb, err = s.ResultThumbnail(id)
	if err != nil {
		t.Fatalf("ResultThumbnail after upscale: %v", err)
	}
	if string(thumb) != "thumb:upscaled-1" {
		t.Fatalf("thumbnail not refreshed, got %q", thumb)
	}
}
