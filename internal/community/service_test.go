package community

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/aelharati/brandpulse-backend/pkg/errors"
	"github.com/aelharati/brandpulse-backend/pkg/logger"
)

type fakeStore struct {
	communityIDs []string
	listErr      error
	addErr       error
	createErr    error

	addedTo  []string
	addedIDs []string
	created  []Fallback
}

func (f *fakeStore) CommunityIDs(_ context.Context, merchantID string) ([]string, error) {
	return f.communityIDs, f.listErr
}

func (f *fakeStore) AddMember(_ context.Context, communityIDs []string, customerID string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.addedTo = append(f.addedTo, communityIDs...)
	f.addedIDs = append(f.addedIDs, customerID)
	return nil
}

func (f *fakeStore) CreateFallback(_ context.Context, community Fallback) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, community)
	return nil
}

type fakeMerchants struct {
	merchant map[string]any
	err      error
}

func (f *fakeMerchants) Merchant(_ context.Context, merchantID string) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.merchant == nil {
		return map[string]any{}, nil
	}
	return f.merchant, nil
}

func newTestService(t *testing.T, store Store, merchants MerchantReader) *Service {
	t.Helper()
	svc, err := NewService(store, merchants, logger.New(logger.Options{ServiceName: "community-test"}))
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestSyncMembershipAddsToAllCommunities(t *testing.T) {
	store := &fakeStore{communityIDs: []string{"c-1", "c-2"}}
	svc := newTestService(t, store, &fakeMerchants{})

	if err := svc.SyncMembership(context.Background(), "m-1", "cust-1"); err != nil {
		t.Fatalf("SyncMembership returned error: %v", err)
	}
	if len(store.addedTo) != 2 {
		t.Fatalf("expected membership in both communities, got %v", store.addedTo)
	}
	if len(store.created) != 0 {
		t.Fatalf("no fallback expected when communities exist")
	}
}

func TestSyncMembershipCreatesFallback(t *testing.T) {
	store := &fakeStore{}
	merchants := &fakeMerchants{merchant: map[string]any{"name": "Store X", "description": "corner shop"}}
	svc := newTestService(t, store, merchants)

	if err := svc.SyncMembership(context.Background(), "m-1", "cust-1"); err != nil {
		t.Fatalf("SyncMembership returned error: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one fallback community, got %d", len(store.created))
	}
	created := store.created[0]
	if created.Name != "Store X" {
		t.Fatalf("expected merchant name, got %q", created.Name)
	}
	if created.Description != "corner shop" {
		t.Fatalf("expected description carried, got %q", created.Description)
	}
	if len(created.Members) != 2 || created.Members[0] != "m-1" || created.Members[1] != "cust-1" {
		t.Fatalf("unexpected members %v", created.Members)
	}
}

func TestSyncMembershipFallbackNameSynthesized(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store, &fakeMerchants{})

	if err := svc.SyncMembership(context.Background(), "m-9", "cust-1"); err != nil {
		t.Fatalf("SyncMembership returned error: %v", err)
	}
	if store.created[0].Name != "Community m-9" {
		t.Fatalf("expected synthesized name, got %q", store.created[0].Name)
	}
}

func TestSyncMembershipMissingIDsIsSkippable(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store, &fakeMerchants{})

	for _, pair := range [][2]string{{"", "cust-1"}, {"m-1", ""}, {"", ""}} {
		err := svc.SyncMembership(context.Background(), pair[0], pair[1])
		if !pkgerrors.IsSkippable(err) {
			t.Fatalf("pair %v: expected skippable, got %v", pair, err)
		}
	}
	if len(store.addedTo) != 0 || len(store.created) != 0 {
		t.Fatalf("skip must not write")
	}
}

func TestSyncMembershipStoreFailuresAreDependencyErrors(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
	}{
		{"list failure", &fakeStore{listErr: errors.New("unavailable")}},
		{"add failure", &fakeStore{communityIDs: []string{"c-1"}, addErr: errors.New("unavailable")}},
		{"create failure", &fakeStore{createErr: errors.New("unavailable")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, tc.store, &fakeMerchants{})
			err := svc.SyncMembership(context.Background(), "m-1", "cust-1")
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeDependency {
				t.Fatalf("expected dependency error, got %v", err)
			}
		})
	}
}

func TestSyncMembershipMerchantReadFailure(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, &fakeMerchants{err: errors.New("unavailable")})

	err := svc.SyncMembership(context.Background(), "m-1", "cust-1")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
