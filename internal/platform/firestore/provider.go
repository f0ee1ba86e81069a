// Package firestore owns the Firestore client used for shared site state,
// such as the resolved Google place identifier.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/lijid/lijid-dotcom/internal/platform/config"
)

const (
	connectTimeout     = 10 * time.Second
	envEmulatorHost    = "FIRESTORE_EMULATOR_HOST"
	envGoogleProjectID = "GOOGLE_CLOUD_PROJECT"
)

var (
	// ErrProviderClosed is returned once Close has run.
	ErrProviderClosed = errors.New("firestore: provider is closed")
	errNoProject      = errors.New("firestore: project id is required")
)

// Provider connects on first use and hands out document references.
// A failed connection attempt is retried by the next caller.
type Provider struct {
	projectID string
	emulator  string
	extra     []option.ClientOption

	mu     sync.Mutex
	client *firestore.Client
	closed bool
}

// NewProvider reads the project and emulator host from cfg, falling back
// to GOOGLE_CLOUD_PROJECT and FIRESTORE_EMULATOR_HOST.
func NewProvider(cfg config.FirestoreConfig, extra ...option.ClientOption) *Provider {
	return &Provider{
		projectID: firstNonEmpty(cfg.ProjectID, os.Getenv(envGoogleProjectID)),
		emulator:  firstNonEmpty(cfg.EmulatorHost, os.Getenv(envEmulatorHost)),
		extra:     extra,
	}
}

// Client returns the shared client.
func (p *Provider) Client(ctx context.Context) (*firestore.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.closed:
		return nil, ErrProviderClosed
	case p.client != nil:
		return p.client, nil
	case p.projectID == "":
		return nil, errNoProject
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := firestore.NewClient(ctx, p.projectID, p.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("firestore: connect to %s: %w", p.projectID, err)
	}
	p.client = client
	return client, nil
}

// Doc returns a reference to collection/id.
func (p *Provider) Doc(ctx context.Context, collection, id string) (*firestore.DocumentRef, error) {
	client, err := p.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(collection).Doc(id), nil
}

// Close releases the client. Later calls to Client fail with ErrProviderClosed.
func (p *Provider) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.client == nil {
		return nil
	}
	client := p.client
	p.client = nil
	return client.Close()
}

// Emulated reports whether the provider targets the local emulator.
func (p *Provider) Emulated() bool { return p.emulator != "" }

func (p *Provider) clientOptions() []option.ClientOption {
	opts := append([]option.ClientOption(nil), p.extra...)
	if p.emulator == "" {
		return opts
	}
	return append(opts,
		option.WithoutAuthentication(),
		option.WithEndpoint(p.emulator),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
