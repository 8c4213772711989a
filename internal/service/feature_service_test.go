package service

import (
	"context"
	"errors"
	"testing"

	"github.com/courseops/admin-engine/internal/domain"
	"github.com/courseops/admin-engine/internal/repository"
)

type fakeFeatureRepo struct {
	getFn  func(ctx context.Context, clientID string) (*domain.FeatureSet, error)
	saveFn func(ctx context.Context, set *domain.FeatureSet) error
}

func (f *fakeFeatureRepo) Get(ctx context.Context, clientID string) (*domain.FeatureSet, error) {
	return f.getFn(ctx, clientID)
}

func (f *fakeFeatureRepo) Save(ctx context.Context, set *domain.FeatureSet) error {
	return f.saveFn(ctx, set)
}

type fakeClientRepo struct {
	getFn func(ctx context.Context, id string) (*domain.Client, error)
}

func (f *fakeClientRepo) Create(ctx context.Context, client *domain.Client) error {
	return nil
}

func (f *fakeClientRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return &domain.Client{ID: id, Name: "Acme", ContactEmail: "ops@acme.test", Status: domain.ClientActive}, nil
}

func (f *fakeClientRepo) List(ctx context.Context, params repository.ClientListParams) ([]domain.Client, int64, error) {
	return nil, 0, nil
}

func (f *fakeClientRepo) Update(ctx context.Context, client *domain.Client) error {
	return nil
}

func (f *fakeClientRepo) SetStatus(ctx context.Context, id string, status domain.ClientStatus) error {
	return nil
}

func newFeatureService(t *testing.T, features *fakeFeatureRepo, clients *fakeClientRepo) *FeatureService {
	t.Helper()

	svc, err := NewFeatureService(features, clients, nil)
	if err != nil {
		t.Fatalf("NewFeatureService() error = %v", err)
	}
	return svc
}

func TestFeatureServiceGetDefaultsToEmptySet(t *testing.T) {
	t.Parallel()

	features := &fakeFeatureRepo{
		getFn: func(ctx context.Context, clientID string) (*domain.FeatureSet, error) {
			return nil, domain.ErrNotFound
		},
	}
	svc := newFeatureService(t, features, &fakeClientRepo{})

	set, err := svc.Get(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if set.Version != 0 || len(set.Features) != 0 {
		t.Fatalf("set = %+v, want empty set at version 0", set)
	}
}

func TestFeatureServiceGetRejectsUnknownClient(t *testing.T) {
	t.Parallel()

	clients := &fakeClientRepo{
		getFn: func(ctx context.Context, id string) (*domain.Client, error) {
			return nil, domain.ErrNotFound
		},
	}
	svc := newFeatureService(t, &fakeFeatureRepo{}, clients)

	if _, err := svc.Get(context.Background(), "client-9"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFeatureServiceSaveNormalizesFeatures(t *testing.T) {
	t.Parallel()

	var saved *domain.FeatureSet
	features := &fakeFeatureRepo{
		saveFn: func(ctx context.Context, set *domain.FeatureSet) error {
			saved = set
			set.Version++
			return nil
		},
	}
	svc := newFeatureService(t, features, &fakeClientRepo{})

	set, err := svc.Save(context.Background(), &domain.FeatureSet{
		ClientID: "client-1",
		Features: []string{" sso ", "analytics", "sso"},
		Version:  2,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	want := []string{"analytics", "sso"}
	if len(saved.Features) != len(want) {
		t.Fatalf("saved features = %v, want %v", saved.Features, want)
	}
	for i := range want {
		if saved.Features[i] != want[i] {
			t.Fatalf("saved features = %v, want %v", saved.Features, want)
		}
	}
	if set.Version != 3 {
		t.Fatalf("Version = %d, want repository-bumped 3", set.Version)
	}
}

func TestFeatureServiceSaveSurfacesStaleVersionConflict(t *testing.T) {
	t.Parallel()

	features := &fakeFeatureRepo{
		saveFn: func(ctx context.Context, set *domain.FeatureSet) error {
			return domain.ErrConflict
		},
	}
	svc := newFeatureService(t, features, &fakeClientRepo{})

	_, err := svc.Save(context.Background(), &domain.FeatureSet{
		ClientID: "client-1",
		Features: []string{"sso"},
		Version:  1,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Save() error = %v, want ErrConflict", err)
	}
}
