package secrets

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// localFile holds values read from the developer secrets file. Each line is
// "<reference>=<value>", where the reference is secret://name[?version=N],
// sm://name or a bare secret name. Blank lines and # comments are skipped.
type localFile struct {
	path   string
	values map[string]string
}

func readLocalFile(path string) (*localFile, error) {
	lf := &localFile{path: path, values: map[string]string{}}
	if path == "" {
		return lf, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return lf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("secrets: open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		// The last '=' splits, so "?version=2" stays in the reference.
		cut := strings.LastIndex(text, "=")
		if cut <= 0 {
			continue
		}
		refText := strings.TrimSpace(text[:cut])
		if !strings.Contains(refText, "://") {
			refText = scheme + refText
		}
		ref, err := ParseRef(refText)
		if err != nil {
			return nil, fmt.Errorf("secrets: %s line %d: %w", path, line, err)
		}
		value := strings.TrimSpace(text[cut+1:])
		lf.values[ref.key()] = value
		if ref.Version == "" {
			lf.values[ref.String()] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("secrets: read %s: %w", path, err)
	}
	return lf, nil
}

// lookup prefers an exact version match and falls back to an unversioned line.
func (lf *localFile) lookup(ref Ref) (string, bool) {
	if v, ok := lf.values[ref.key()]; ok {
		return v, true
	}
	v, ok := lf.values[ref.String()]
	return v, ok
}
