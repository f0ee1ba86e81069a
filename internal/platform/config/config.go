// Package config loads the site settings from the environment, an optional
// .env file and secret:// references.
package config

import (
	"context"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultEnvironment     = "local"
	defaultFromName        = "LijiDeepak.com"
	defaultMailEndpoint    = "https://api.mailchannels.net/tx/v1/send"
	defaultLeadRateLimit   = 5
	defaultLeadRateWindow  = time.Minute
	defaultPlaceID         = "ChIJ9WYin_E39ocRjjv-SfNSlAY"
	defaultPlaceQuery      = "Buy and Sell home with Liji Deepak, a Licensed Real estate agent for Minnesota"
	defaultShareURL        = "https://share.google/gVvlDOWt5ii8JQjIW"
	defaultBiasLat         = 44.6497
	defaultBiasLng         = -93.2427
	defaultBiasRadius      = 50000
	defaultMaxReviews      = 4
	defaultReviewsCacheTTL = 10 * time.Minute
	defaultContactPhone    = "(612) 800-3202"
	defaultSiteName        = "Liji Deepak"
	defaultBaseURL         = "https://lijideepak.com/"
	defaultDescription     = "Buy and sell your Minnesota home with Liji Deepak, licensed real estate agent."
	defaultAreaServed      = "Lakeville, MN;Apple Valley, MN;Burnsville, MN"
	defaultSiteVersion     = "26.0.4"
	defaultTemplatesDir    = "templates"
	defaultPublicDir       = "public"
	defaultContentFile     = "content/testimonials.yaml"
	defaultPlaceCache      = PlaceCacheMemory
	defaultReviewsMode     = ReviewsModeLive
)

// Reviews section rendering modes.
const (
	ReviewsModeLive   = "live"
	ReviewsModeWidget = "widget"
)

// Place identifier cache backends.
const (
	PlaceCacheMemory    = "memory"
	PlaceCacheFirestore = "firestore"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig
	Site      SiteConfig
	Lead      LeadConfig
	Reviews   ReviewsConfig
	Firestore FirestoreConfig
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SiteConfig holds presentation settings shared by every page.
type SiteConfig struct {
	Name           string
	BaseURL        string
	Description    string
	AreaServed     []string
	Environment    string
	Debug          bool
	Version        string
	ContactPhone   string
	CaptchaSiteKey string
	TemplatesDir   string
	PublicDir      string
	ContentFile    string
}

// LeadConfig configures lead intake and outbound notification mail.
type LeadConfig struct {
	ToEmail      string
	FromEmail    string
	FromName     string
	MailAPIKey   string
	MailEndpoint string
	RateLimit    int
	RateWindow   time.Duration
}

// Configured reports whether every value needed to send a notification is present.
func (c LeadConfig) Configured() bool {
	return strings.TrimSpace(c.ToEmail) != "" &&
		strings.TrimSpace(c.FromEmail) != "" &&
		strings.TrimSpace(c.MailAPIKey) != ""
}

// ReviewsConfig configures place resolution and the reviews section.
type ReviewsConfig struct {
	MapsAPIKey       string
	PlaceID          string
	PlaceQuery       string
	BiasLat          float64
	BiasLng          float64
	BiasRadiusMeters float64
	ShareURL         string
	MaxReviews       int
	Mode             string
	CacheTTL         time.Duration
	PlaceCache       string
}

// FirestoreConfig selects the project holding shared site state.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// SecretResolver turns a secret:// reference into its value.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// Option customises Load and Lookup.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile reads overrides from path instead of ./.env. Empty disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap supplies values that win over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// WithRequiredSecrets fails Load when a named secret field, such as
// "Lead.MailAPIKey", ends up empty.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) { o.requiredSecrets = append(o.requiredSecrets, names...) }
}

func buildOptions(opts []Option) loaderOptions {
	o := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Lookup reads one raw key with Load's precedence. It serves components
// that must exist before Load runs, such as the secret fetcher.
func Lookup(key string, opts ...Option) (string, error) {
	src, err := newSource(buildOptions(opts))
	if err != nil {
		return "", err
	}
	return src.str("", key), nil
}

// Load builds the Config. Values marked secret:// or sm:// are resolved
// through the configured SecretResolver.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	o := buildOptions(opts)
	src, err := newSource(o)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         src.str(defaultPort, "SITE_SERVER_PORT", "PORT"),
			ReadTimeout:  src.duration("SITE_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: src.duration("SITE_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  src.duration("SITE_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Site: SiteConfig{
			Name:           src.str(defaultSiteName, "SITE_NAME"),
			BaseURL:        src.str(defaultBaseURL, "SITE_BASE_URL"),
			Description:    src.str(defaultDescription, "SITE_DESCRIPTION"),
			AreaServed:     src.list("SITE_AREA_SERVED", defaultAreaServed),
			Environment:    src.lower("SITE_ENVIRONMENT", defaultEnvironment),
			Debug:          src.flag("SITE_DEBUG", false),
			Version:        src.str(defaultSiteVersion, "SITE_VERSION"),
			ContactPhone:   src.str(defaultContactPhone, "SITE_CONTACT_PHONE"),
			CaptchaSiteKey: src.str("", "SITE_CAPTCHA_SITE_KEY"),
			TemplatesDir:   src.str(defaultTemplatesDir, "SITE_TEMPLATES_DIR"),
			PublicDir:      src.str(defaultPublicDir, "SITE_PUBLIC_DIR"),
			ContentFile:    src.str(defaultContentFile, "SITE_CONTENT_FILE"),
		},
		Lead: LeadConfig{
			ToEmail:      src.str("", "SITE_LEAD_TO_EMAIL"),
			FromEmail:    src.str("", "SITE_LEAD_FROM_EMAIL"),
			FromName:     src.str(defaultFromName, "SITE_LEAD_FROM_NAME"),
			MailAPIKey:   src.str("", "SITE_MAIL_API_KEY"),
			MailEndpoint: src.str(defaultMailEndpoint, "SITE_MAIL_ENDPOINT"),
			RateLimit:    src.integer("SITE_LEAD_RATE_LIMIT", defaultLeadRateLimit),
			RateWindow:   src.duration("SITE_LEAD_RATE_WINDOW", defaultLeadRateWindow),
		},
		Reviews: ReviewsConfig{
			MapsAPIKey:       src.str("", "SITE_MAPS_API_KEY"),
			PlaceID:          src.str(defaultPlaceID, "SITE_PLACE_ID"),
			PlaceQuery:       src.str(defaultPlaceQuery, "SITE_PLACE_QUERY"),
			BiasLat:          src.float("SITE_PLACE_BIAS_LAT", defaultBiasLat),
			BiasLng:          src.float("SITE_PLACE_BIAS_LNG", defaultBiasLng),
			BiasRadiusMeters: src.float("SITE_PLACE_BIAS_RADIUS_METERS", defaultBiasRadius),
			ShareURL:         src.str(defaultShareURL, "SITE_REVIEWS_SHARE_URL"),
			MaxReviews:       src.integer("SITE_REVIEWS_MAX", defaultMaxReviews),
			Mode:             src.lower("SITE_REVIEWS_MODE", defaultReviewsMode),
			CacheTTL:         src.duration("SITE_REVIEWS_CACHE_TTL", defaultReviewsCacheTTL),
			PlaceCache:       src.lower("SITE_PLACE_CACHE", defaultPlaceCache),
		},
		Firestore: FirestoreConfig{
			ProjectID:    src.str("", "SITE_FIRESTORE_PROJECT_ID"),
			EmulatorHost: src.str("", "SITE_FIRESTORE_EMULATOR_HOST"),
		},
	}

	secretFields := map[string]*string{
		"Lead.MailAPIKey":    &cfg.Lead.MailAPIKey,
		"Reviews.MapsAPIKey": &cfg.Reviews.MapsAPIKey,
	}
	for _, field := range secretFields {
		if err := resolveInPlace(ctx, field, o.secret); err != nil {
			return Config{}, err
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	if err := requireSecrets(o.requiredSecrets, secretFields); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolveInPlace replaces a secret reference with its value. Plain values
// are left alone.
func resolveInPlace(ctx context.Context, field *string, resolver SecretResolver) error {
	ref, ok := secretRef(*field)
	if !ok {
		return nil
	}
	if resolver == nil {
		return &SecretError{Ref: ref, Err: errNoSecretResolver}
	}
	value, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return &SecretError{Ref: ref, Err: err}
	}
	*field = strings.TrimSpace(value)
	return nil
}

// secretRef reports whether value is a secret reference and returns it in
// secret:// form.
func secretRef(value string) (string, bool) {
	switch {
	case strings.HasPrefix(value, "secret://"):
		return value, true
	case strings.HasPrefix(value, "sm://"):
		return "secret://" + strings.TrimPrefix(value, "sm://"), true
	}
	return "", false
}

// validate leaves mail settings alone: an incomplete mail setup makes the
// lead endpoint answer server_not_configured rather than stopping the site.
func validate(cfg Config) error {
	var bad []string
	check := func(ok bool, field string) {
		if !ok {
			bad = append(bad, field)
		}
	}
	check(cfg.Server.Port != "", "Server.Port")
	check(cfg.Site.BaseURL != "", "Site.BaseURL")
	check(cfg.Lead.RateLimit >= 0, "Lead.RateLimit")
	check(cfg.Lead.RateWindow > 0, "Lead.RateWindow")
	check(cfg.Reviews.MaxReviews > 0, "Reviews.MaxReviews")
	check(cfg.Reviews.CacheTTL >= 0, "Reviews.CacheTTL")
	check(cfg.Reviews.Mode == ReviewsModeLive || cfg.Reviews.Mode == ReviewsModeWidget, "Reviews.Mode")
	switch cfg.Reviews.PlaceCache {
	case PlaceCacheMemory:
	case PlaceCacheFirestore:
		check(cfg.Firestore.ProjectID != "", "Firestore.ProjectID")
	default:
		bad = append(bad, "Reviews.PlaceCache")
	}
	if len(bad) > 0 {
		return &ValidationError{fields: bad}
	}
	return nil
}

func requireSecrets(required []string, fields map[string]*string) error {
	var missing []string
	seen := make(map[string]bool)
	for _, name := range required {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if field, ok := fields[name]; !ok || *field == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{names: missing}
}
