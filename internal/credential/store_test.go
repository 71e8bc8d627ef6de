package credential

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/storage"
)

type fakeCredRepo struct {
	value   string
	failGet bool
}

func (f *fakeCredRepo) Get(_ context.Context) (string, error) {
	if f.failGet {
		return "", errors.New("storage broken")
	}
	if f.value == "" {
		return "", storage.ErrNotFound
	}
	return f.value, nil
}

func (f *fakeCredRepo) Put(_ context.Context, value string) error {
	f.value = value
	return nil
}

func TestStore_EnvBeatsSaved(t *testing.T) {
	repo := &fakeCredRepo{value: "saved-key"}
	s := NewStore(context.Background(), "env-key", repo, zap.NewNop())

	got, ok := s.Resolve()
	if !ok || got != "env-key" {
		t.Errorf("expected env-key, got %q (present=%v)", got, ok)
	}
	if s.Source() != SourceEnv {
		t.Errorf("expected source env, got %q", s.Source())
	}
}

func TestStore_PlaceholderFallsThroughToSaved(t *testing.T) {
	repo := &fakeCredRepo{value: "saved-key"}
	s := NewStore(context.Background(), Placeholder, repo, zap.NewNop())

	got, ok := s.Resolve()
	if !ok || got != "saved-key" {
		t.Errorf("expected saved-key, got %q (present=%v)", got, ok)
	}
	if s.Source() != SourceSaved {
		t.Errorf("expected source saved, got %q", s.Source())
	}
}

func TestStore_NoneResolved(t *testing.T) {
	s := NewStore(context.Background(), "", &fakeCredRepo{}, zap.NewNop())

	if _, ok := s.Resolve(); ok {
		t.Error("expected no credential to resolve")
	}
	if s.Source() != SourceNone {
		t.Errorf("expected empty source, got %q", s.Source())
	}
}

func TestStore_ReadFailureTreatedAsAbsent(t *testing.T) {
	s := NewStore(context.Background(), "", &fakeCredRepo{failGet: true}, zap.NewNop())
	if _, ok := s.Resolve(); ok {
		t.Error("expected no credential when storage is unreadable")
	}
}

func TestStore_SaveTrimsAndActivates(t *testing.T) {
	repo := &fakeCredRepo{}
	s := NewStore(context.Background(), "", repo, zap.NewNop())

	if err := s.Save(context.Background(), "  new-key \n"); err != nil {
		t.Fatalf("saving credential: %v", err)
	}

	got, ok := s.Resolve()
	if !ok || got != "new-key" {
		t.Errorf("expected new-key active, got %q", got)
	}
	if repo.value != "new-key" {
		t.Errorf("expected new-key persisted, got %q", repo.value)
	}
}

func TestStore_SaveRejectsEmpty(t *testing.T) {
	repo := &fakeCredRepo{}
	s := NewStore(context.Background(), "", repo, zap.NewNop())

	if err := s.Save(context.Background(), "   "); !errors.Is(err, ErrEmptyCredential) {
		t.Errorf("expected ErrEmptyCredential, got %v", err)
	}
	if repo.value != "" {
		t.Errorf("expected nothing persisted, got %q", repo.value)
	}
}
