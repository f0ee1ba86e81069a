// Package secrets resolves secret:// configuration values such as the mail
// API key. Production reads Google Secret Manager; local development reads
// a plain file.
package secrets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DefaultLocalFile is read when WithFallbackFile is not given.
	DefaultLocalFile = ".secrets.local"

	meterName     = "github.com/lijid/lijid-dotcom/internal/platform/secrets"
	accessTimeout = 10 * time.Second
)

// Where a resolved value came from, used as the metric "source" attribute.
const (
	sourceCache   = "cache"
	sourceManager = "secret_manager"
	sourceLocal   = "local_file"
	sourceError   = "error"
)

var newManagerClient = func(ctx context.Context, opts ...option.ClientOption) (managerClient, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type managerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves references once and keeps the values for the life of
// the process. Concurrent lookups of the same reference share one call.
type Fetcher struct {
	manager     managerClient
	ownsManager bool
	project     string
	logger      *zap.Logger

	localPath string
	localOnce sync.Once
	local     *localFile
	localErr  error

	group  singleflight.Group
	mu     sync.RWMutex
	values map[string]string

	resolves metric.Int64Counter
	latency  metric.Float64Histogram
}

type settings struct {
	logger     *zap.Logger
	project    string
	localPath  string
	meter      metric.Meter
	manager    managerClient
	clientOpts []option.ClientOption
}

// Option configures NewFetcher.
type Option func(*settings)

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithDefaultProject is the project for references without ?project=.
func WithDefaultProject(projectID string) Option {
	return func(s *settings) { s.project = strings.TrimSpace(projectID) }
}

// WithFallbackFile sets the local secrets file. An empty path disables it.
func WithFallbackFile(path string) Option {
	return func(s *settings) { s.localPath = strings.TrimSpace(path) }
}

func WithMeter(m metric.Meter) Option {
	return func(s *settings) { s.meter = m }
}

// WithSecretManagerClient uses client instead of dialing Secret Manager.
func WithSecretManagerClient(client managerClient) Option {
	return func(s *settings) { s.manager = client }
}

// WithClientOptions is passed to the Secret Manager client constructor.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *settings) { s.clientOpts = append(s.clientOpts, opts...) }
}

// NewFetcher dials Secret Manager only when a default project is set and no
// client was injected. A failed dial leaves the fetcher on the local file.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	s := settings{localPath: DefaultLocalFile}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.meter == nil {
		s.meter = otel.GetMeterProvider().Meter(meterName)
	}

	f := &Fetcher{
		manager:   s.manager,
		project:   s.project,
		logger:    s.logger,
		localPath: s.localPath,
		values:    make(map[string]string),
	}

	var err error
	if f.resolves, err = s.meter.Int64Counter("secrets.resolve.count",
		metric.WithDescription("Secret resolutions by source")); err != nil {
		s.logger.Warn("secrets: resolve counter unavailable", zap.Error(err))
	}
	if f.latency, err = s.meter.Float64Histogram("secrets.resolve.latency",
		metric.WithUnit("ms"), metric.WithDescription("Secret resolution latency")); err != nil {
		s.logger.Warn("secrets: latency histogram unavailable", zap.Error(err))
	}

	if f.manager == nil && f.project != "" {
		client, err := newManagerClient(ctx, s.clientOpts...)
		if err != nil {
			s.logger.Warn("secrets: secret manager unavailable, using local file only", zap.Error(err))
		} else {
			f.manager = client
			f.ownsManager = true
		}
	}
	return f, nil
}

// Close releases a Secret Manager client created by NewFetcher.
func (f *Fetcher) Close() error {
	if f.ownsManager && f.manager != nil {
		return f.manager.Close()
	}
	return nil
}

// ResolveSecret satisfies config.SecretResolver.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f.Resolve(ctx, ref)
}

// Resolve returns the value behind raw. Secret Manager is asked first; when
// it denies access or is unreachable the local file answers instead. Other
// Secret Manager errors, NotFound included, are returned.
func (f *Fetcher) Resolve(ctx context.Context, raw string) (string, error) {
	started := time.Now()
	ref, err := ParseRef(raw)
	if err != nil {
		return "", err
	}
	key := ref.key()
	if value, ok := f.cached(key); ok {
		f.observe(ctx, started, sourceCache)
		return value, nil
	}

	v, err, _ := f.group.Do(key, func() (any, error) {
		if value, ok := f.cached(key); ok {
			return resolved{value, sourceCache}, nil
		}
		r, err := f.fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.values[key] = r.value
		f.mu.Unlock()
		return r, nil
	})
	if err != nil {
		f.observe(ctx, started, sourceError)
		return "", err
	}
	r := v.(resolved)
	f.observe(ctx, started, r.source)
	return r.value, nil
}

// Invalidate forgets every cached version of raw.
func (f *Fetcher) Invalidate(raw string) {
	ref, err := ParseRef(raw)
	if err != nil {
		return
	}
	prefix := ref.String() + "@"
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.values {
		if strings.HasPrefix(key, prefix) {
			delete(f.values, key)
		}
	}
}

type resolved struct {
	value  string
	source string
}

func (f *Fetcher) cached(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok
}

func (f *Fetcher) fetch(ctx context.Context, ref Ref) (resolved, error) {
	if resource, ok := ref.resource(f.project); ok && f.manager != nil {
		value, err := f.access(ctx, resource)
		if err == nil {
			return resolved{value, sourceManager}, nil
		}
		if !useLocalAfter(err) {
			return resolved{}, fmt.Errorf("secrets: %s: %w", ref, err)
		}
		f.logger.Debug("secrets: secret manager refused, trying local file",
			zap.String("secret", fingerprint(ref)), zap.Error(err))
	}

	f.localOnce.Do(func() { f.local, f.localErr = readLocalFile(f.localPath) })
	if f.localErr != nil {
		return resolved{}, f.localErr
	}
	value, ok := f.local.lookup(ref)
	if !ok {
		return resolved{}, fmt.Errorf("secrets: no value for %s", ref)
	}
	return resolved{value, sourceLocal}, nil
}

func (f *Fetcher) access(ctx context.Context, resource string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, accessTimeout)
	defer cancel()
	resp, err := f.manager.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("empty payload for %s", resource)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

func (f *Fetcher) observe(ctx context.Context, started time.Time, source string) {
	attrs := metric.WithAttributes(attribute.String("source", source))
	if f.resolves != nil {
		f.resolves.Add(ctx, 1, attrs)
	}
	if f.latency != nil {
		f.latency.Record(ctx, float64(time.Since(started))/float64(time.Millisecond), attrs)
	}
}

// useLocalAfter lists the Secret Manager failures a developer machine
// without credentials produces.
func useLocalAfter(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded:
		return true
	}
	return false
}

// fingerprint names a secret in logs without revealing which one.
func fingerprint(ref Ref) string {
	sum := sha256.Sum256([]byte(ref.String()))
	return hex.EncodeToString(sum[:6])
}
