package store

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	fs "github.com/aelharati/brandpulse-backend/pkg/firestore"
)

// Merchants reads merchant documents from Firestore.
type Merchants struct {
	client *fs.Client
}

func NewMerchants(client *fs.Client) *Merchants {
	return &Merchants{client: client}
}

// Merchant returns the raw merchant document. Merchant docs vary in shape
// (location may be a geo point or a plain map), so the dynamic form is kept
// and resolved by the caller. An absent merchant yields an empty map.
func (m *Merchants) Merchant(ctx context.Context, merchantID string) (map[string]any, error) {
	snap, err := m.client.Merchants().Doc(merchantID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("reading merchant %s: %w", merchantID, err)
	}
	return snap.Data(), nil
}
