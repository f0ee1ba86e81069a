package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// source answers lookups from, in order: an explicit map, the process
// environment and a .env file.
type source struct {
	explicit map[string]string
	process  bool
	dotenv   map[string]string
}

func newSource(o loaderOptions) (source, error) {
	dotenv, err := readDotEnv(o.envFile)
	if err != nil {
		return source{}, err
	}
	return source{explicit: o.envMap, process: o.useSystemEnv, dotenv: dotenv}, nil
}

func (s source) raw(key string) (string, bool) {
	if v, ok := s.explicit[key]; ok {
		return v, true
	}
	if s.process {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
	}
	v, ok := s.dotenv[key]
	return v, ok
}

// str returns the trimmed value of the first key that is set and not blank.
func (s source) str(fallback string, keys ...string) string {
	for _, key := range keys {
		if v, ok := s.raw(key); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return fallback
}

func (s source) lower(key, fallback string) string {
	return strings.ToLower(s.str(fallback, key))
}

// list splits on ";" because entries such as "Lakeville, MN" contain commas.
func (s source) list(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(s.str(fallback, key), ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Unparseable values fall back to the default for the typed getters below.

func (s source) duration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s.str("", key)); err == nil {
		return d
	}
	return fallback
}

func (s source) integer(key string, fallback int) int {
	if n, err := strconv.Atoi(s.str("", key)); err == nil {
		return n
	}
	return fallback
}

func (s source) float(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(s.str("", key), 64); err == nil {
		return f
	}
	return fallback
}

func (s source) flag(key string, fallback bool) bool {
	switch strings.ToLower(s.str("", key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return fallback
}

// readDotEnv parses KEY=value lines, accepting an "export " prefix and
// surrounding quotes. A missing file is not an error.
func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if key = strings.TrimSpace(key); !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}
