package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/aelharati/brandpulse-backend/pkg/config"
	"github.com/aelharati/brandpulse-backend/pkg/logger"
)

// Client wraps the Firestore connection plus the collection names the
// aggregation pipeline reads and writes.
type Client struct {
	raw *firestore.Client
	cfg config.FirestoreConfig
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// NewClient connects to the configured Firestore database.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.FirestoreConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errors.New("gcp project id is required")
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}

	raw, err := firestore.NewClientWithDatabase(ctx, gcp.ProjectID, cfg.DatabaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "firestore client initialized")
	}

	return &Client{raw: raw, cfg: cfg}, nil
}

// Raw exposes the underlying Firestore client.
func (c *Client) Raw() *firestore.Client {
	if c == nil {
		return nil
	}
	return c.raw
}

// Invoices returns the invoices collection.
func (c *Client) Invoices() *firestore.CollectionRef {
	return c.raw.Collection(c.cfg.InvoicesCollection)
}

// Merchants returns the merchants collection.
func (c *Client) Merchants() *firestore.CollectionRef {
	return c.raw.Collection(c.cfg.MerchantsCollection)
}

// Products returns the product catalog collection.
func (c *Client) Products() *firestore.CollectionRef {
	return c.raw.Collection(c.cfg.ProductsCollection)
}

// Communities returns the communities collection.
func (c *Client) Communities() *firestore.CollectionRef {
	return c.raw.Collection(c.cfg.CommunitiesCollection)
}

// Performance returns the brand/store performance collection.
func (c *Client) Performance() *firestore.CollectionRef {
	return c.raw.Collection(c.cfg.PerformanceCollection)
}

// Ping lists one collection id to verify connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return errors.New("firestore client not initialized")
	}
	_, err := c.raw.Collections(ctx).Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("listing collections: %w", err)
	}
	return nil
}

// Close releases the Firestore client resources.
func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
