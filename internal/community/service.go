package community

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/aelharati/brandpulse-backend/pkg/errors"
	"github.com/aelharati/brandpulse-backend/pkg/logger"
)

// Store persists community membership documents.
type Store interface {
	CommunityIDs(ctx context.Context, merchantID string) ([]string, error)
	AddMember(ctx context.Context, communityIDs []string, customerID string) error
	CreateFallback(ctx context.Context, community Fallback) error
}

// MerchantReader fetches the raw merchant document used to name a fallback
// community.
type MerchantReader interface {
	Merchant(ctx context.Context, merchantID string) (map[string]any, error)
}

// Fallback is the community created when a merchant has none yet.
type Fallback struct {
	MerchantID  string
	Name        string
	Members     []string
	Description string
}

// Service maintains the customer-membership set of each merchant community.
type Service struct {
	store     Store
	merchants MerchantReader
	logg      *logger.Logger
}

func NewService(store Store, merchants MerchantReader, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("community store is required")
	}
	if merchants == nil {
		return nil, errors.New("merchant reader is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{store: store, merchants: merchants, logg: logg}, nil
}

// SyncMembership adds the customer to every community of the merchant,
// creating a fallback community when the merchant has none.
func (s *Service) SyncMembership(ctx context.Context, merchantID, customerID string) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"merchant_id": merchantID,
		"customer_id": customerID,
	})

	if merchantID == "" || customerID == "" {
		s.logg.Warn(logCtx, "invoice link lacks merchantId or customerId")
		return pkgerrors.New(pkgerrors.CodeSkippable, "invoice link lacks merchantId or customerId")
	}

	communityIDs, err := s.store.CommunityIDs(ctx, merchantID)
	if err != nil {
		s.logg.Error(logCtx, "failed to list communities", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("list communities for merchant %s", merchantID))
	}

	if len(communityIDs) == 0 {
		if err := s.createFallback(ctx, merchantID, customerID); err != nil {
			s.logg.Error(logCtx, "failed to create fallback community", err)
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("create fallback community for merchant %s", merchantID))
		}
		s.logg.Info(logCtx, "created fallback community")
		return nil
	}

	if err := s.store.AddMember(ctx, communityIDs, customerID); err != nil {
		s.logg.Error(logCtx, "failed to sync community membership", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("add member to %d communities", len(communityIDs)))
	}

	s.logg.Info(logCtx, "synced community membership")
	return nil
}

func (s *Service) createFallback(ctx context.Context, merchantID, customerID string) error {
	merchant, err := s.merchants.Merchant(ctx, merchantID)
	if err != nil {
		return err
	}

	name := "Community " + merchantID
	for _, key := range []string{"name", "storeName"} {
		if value, ok := merchant[key].(string); ok && value != "" {
			name = value
			break
		}
	}
	description, _ := merchant["description"].(string)

	return s.store.CreateFallback(ctx, Fallback{
		MerchantID:  merchantID,
		Name:        name,
		Members:     []string{merchantID, customerID},
		Description: description,
	})
}
