package community

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/multierr"

	fs "github.com/aelharati/brandpulse-backend/pkg/firestore"
)

// FirestoreStore implements Store on Firestore.
type FirestoreStore struct {
	client *fs.Client
}

func NewFirestoreStore(client *fs.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// CommunityIDs returns the ids of all communities owned by the merchant.
func (s *FirestoreStore) CommunityIDs(ctx context.Context, merchantID string) ([]string, error) {
	snaps, err := s.client.Communities().Where("merchantId", "==", merchantID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("querying communities for merchant %s: %w", merchantID, err)
	}

	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.Ref.ID)
	}
	return ids, nil
}

// AddMember unions the customer into each community's member set in one batch
// and bumps the server-side update timestamp.
func (s *FirestoreStore) AddMember(ctx context.Context, communityIDs []string, customerID string) error {
	if len(communityIDs) == 0 {
		return nil
	}

	bw := s.client.Raw().BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(communityIDs))
	for _, id := range communityIDs {
		job, err := bw.Update(s.client.Communities().Doc(id), []firestore.Update{
			{Path: "members", Value: firestore.ArrayUnion(customerID)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
		if err != nil {
			bw.End()
			return fmt.Errorf("enqueueing membership for %s: %w", id, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var errs error
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("updating community %s: %w", communityIDs[i], err))
		}
	}
	return errs
}

// CreateFallback adds a new community document with server timestamps.
func (s *FirestoreStore) CreateFallback(ctx context.Context, community Fallback) error {
	doc := map[string]any{
		"merchantId":  community.MerchantID,
		"name":        community.Name,
		"members":     community.Members,
		"description": nil,
		"createdAt":   firestore.ServerTimestamp,
		"updatedAt":   firestore.ServerTimestamp,
	}
	if community.Description != "" {
		doc["description"] = community.Description
	}

	if _, _, err := s.client.Communities().Add(ctx, doc); err != nil {
		return fmt.Errorf("creating community for merchant %s: %w", community.MerchantID, err)
	}
	return nil
}
