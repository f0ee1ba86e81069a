package secrets

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	scheme       = "secret://"
	legacyScheme = "sm://"
)

// Ref is a parsed secret reference such as
// secret://mailchannels-api-key?version=3&project=site-prod.
type Ref struct {
	Name    string
	Version string
	Project string
}

// ParseRef accepts secret:// and sm:// references.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, errors.New("secrets: empty reference")
	}
	if strings.HasPrefix(raw, legacyScheme) {
		raw = scheme + strings.TrimPrefix(raw, legacyScheme)
	}
	if !strings.HasPrefix(raw, scheme) {
		return Ref{}, fmt.Errorf("secrets: %q is not a secret:// reference", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Ref{}, fmt.Errorf("secrets: invalid reference %q: %w", raw, err)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" {
		return Ref{}, fmt.Errorf("secrets: %q names no secret", raw)
	}
	q := u.Query()
	return Ref{
		Name:    name,
		Version: strings.TrimSpace(q.Get("version")),
		Project: strings.TrimSpace(q.Get("project")),
	}, nil
}

// String renders the unversioned reference.
func (r Ref) String() string { return scheme + r.Name }

func (r Ref) version() string {
	if r.Version == "" {
		return "latest"
	}
	return r.Version
}

// key identifies one version of the secret in caches.
func (r Ref) key() string { return r.String() + "@" + r.version() }

func (r Ref) resource(defaultProject string) (string, bool) {
	project := r.Project
	if project == "" {
		project = defaultProject
	}
	if project == "" {
		return "", false
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, r.Name, r.version()), true
}
