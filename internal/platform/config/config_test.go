package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Lead.Configured() {
		t.Errorf("expected lead config to be unconfigured by default")
	}
	if cfg.Lead.FromName != "LijiDeepak.com" {
		t.Errorf("unexpected default from name %q", cfg.Lead.FromName)
	}
	if cfg.Lead.MailEndpoint != defaultMailEndpoint {
		t.Errorf("unexpected mail endpoint %q", cfg.Lead.MailEndpoint)
	}
	if cfg.Lead.RateLimit != 5 || cfg.Lead.RateWindow != time.Minute {
		t.Errorf("unexpected rate limit %d/%s", cfg.Lead.RateLimit, cfg.Lead.RateWindow)
	}
	if cfg.Reviews.MaxReviews != 4 {
		t.Errorf("expected max reviews 4, got %d", cfg.Reviews.MaxReviews)
	}
	if cfg.Reviews.Mode != ReviewsModeLive {
		t.Errorf("expected live reviews mode, got %s", cfg.Reviews.Mode)
	}
	if cfg.Reviews.BiasLat != 44.6497 || cfg.Reviews.BiasLng != -93.2427 || cfg.Reviews.BiasRadiusMeters != 50000 {
		t.Errorf("unexpected location bias %+v", cfg.Reviews)
	}
	if cfg.Reviews.PlaceCache != PlaceCacheMemory {
		t.Errorf("expected memory place cache, got %s", cfg.Reviews.PlaceCache)
	}
	if cfg.Site.Version != "26.0.4" {
		t.Errorf("unexpected site version %s", cfg.Site.Version)
	}
	if cfg.Site.ContactPhone != "(612) 800-3202" {
		t.Errorf("unexpected contact phone %s", cfg.Site.ContactPhone)
	}
	if cfg.Site.Name != "Liji Deepak" || cfg.Site.BaseURL != "https://lijideepak.com/" {
		t.Errorf("unexpected site identity %q %q", cfg.Site.Name, cfg.Site.BaseURL)
	}
	if len(cfg.Site.AreaServed) != 3 || cfg.Site.AreaServed[0] != "Lakeville, MN" {
		t.Errorf("unexpected area served %v", cfg.Site.AreaServed)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"SITE_SERVER_PORT":         "9090",
		"SITE_SERVER_READ_TIMEOUT": "20s",
		"SITE_DEBUG":               "yes",
		"SITE_LEAD_TO_EMAIL":       " liji@example.com ",
		"SITE_LEAD_FROM_EMAIL":     "noreply@example.com",
		"SITE_MAIL_API_KEY":        "sm://mailchannels-key",
		"SITE_MAPS_API_KEY":        "secret://maps-key?version=3",
		"SITE_LEAD_RATE_LIMIT":     "0",
		"SITE_PLACE_ID":            "ChIJ123",
		"SITE_REVIEWS_MAX":         "6",
		"SITE_REVIEWS_MODE":        "Widget",
		"SITE_REVIEWS_CACHE_TTL":   "0s",
		"SITE_PLACE_BIAS_LAT":      "45.0",
		"SITE_AREA_SERVED":         " Edina, MN ;; ",
	}
	secrets := map[string]string{
		"secret://mailchannels-key":     "mc-key",
		"secret://maps-key?version=3": "maps-key",
	}
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", errors.New("unknown secret")
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if !cfg.Site.Debug {
		t.Errorf("expected debug to be enabled")
	}
	if cfg.Lead.ToEmail != "liji@example.com" {
		t.Errorf("expected trimmed to email, got %q", cfg.Lead.ToEmail)
	}
	if cfg.Lead.MailAPIKey != "mc-key" {
		t.Errorf("expected resolved mail key, got %q", cfg.Lead.MailAPIKey)
	}
	if !cfg.Lead.Configured() {
		t.Errorf("expected lead config to be configured")
	}
	if cfg.Lead.RateLimit != 0 {
		t.Errorf("expected rate limit disabled, got %d", cfg.Lead.RateLimit)
	}
	if cfg.Reviews.MapsAPIKey != "maps-key" {
		t.Errorf("expected resolved maps key, got %q", cfg.Reviews.MapsAPIKey)
	}
	if cfg.Reviews.MaxReviews != 6 || cfg.Reviews.Mode != ReviewsModeWidget || cfg.Reviews.CacheTTL != 0 {
		t.Errorf("unexpected reviews config %+v", cfg.Reviews)
	}
	if cfg.Reviews.BiasLat != 45.0 {
		t.Errorf("expected bias lat override, got %v", cfg.Reviews.BiasLat)
	}
	if len(cfg.Site.AreaServed) != 1 || cfg.Site.AreaServed[0] != "Edina, MN" {
		t.Errorf("expected trimmed area served, got %v", cfg.Site.AreaServed)
	}
}

func TestLoadFallsBackToPlatformPort(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{"PORT": "3000"}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "3000" {
		t.Fatalf("expected PORT fallback, got %s", cfg.Server.Port)
	}
}

func TestLoadSecretResolutionFailure(t *testing.T) {
	env := map[string]string{"SITE_MAIL_API_KEY": "secret://missing"}
	resolver := SecretResolverFunc(func(context.Context, string) (string, error) {
		return "", errors.New("not found")
	})

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Fatalf("unexpected ref %q", secretErr.Ref)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"SITE_REVIEWS_MAX":  "0",
		"SITE_REVIEWS_MODE": "carousel",
		"SITE_PLACE_CACHE":  "firestore",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{"Reviews.MaxReviews": true, "Reviews.Mode": true, "Firestore.ProjectID": true}
	fields := validation.Fields()
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields %v", fields)
	}
	for _, field := range fields {
		if !want[field] {
			t.Errorf("unexpected invalid field %s", field)
		}
	}
}

func TestLoadRequiredSecrets(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""), WithRequiredSecrets("Lead.MailAPIKey"))
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %v", err)
	}
	if names := missing.Names(); len(names) != 1 || names[0] != "Lead.MailAPIKey" {
		t.Fatalf("unexpected missing names %v", names)
	}
}

func TestLoadReadsDotEnvWithLowerPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local\nexport SITE_LEAD_TO_EMAIL=\"dotenv@example.com\"\nSITE_SERVER_PORT=7070\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{"SITE_SERVER_PORT": "9999"}), WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Lead.ToEmail != "dotenv@example.com" {
		t.Errorf("expected dotenv value, got %q", cfg.Lead.ToEmail)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("expected env map to win over dotenv, got %s", cfg.Server.Port)
	}

	value, err := Lookup("SITE_SERVER_PORT", WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if value != "7070" {
		t.Errorf("expected lookup to read dotenv, got %q", value)
	}
}
