// Package timezones provides a time zone select widget backed by the IANA
// zone list, plus a JSON search endpoint for clients that filter the list as
// the user types.
package timezones

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

//go:embed data/iana_timezones.txt
var dataFS embed.FS

const defaultListPath = "data/iana_timezones.txt"

var (
	defaultOnce  sync.Once
	defaultZones []string
	defaultErr   error
)

// DefaultZones returns a copy of the embedded IANA zone list, sorted.
func DefaultZones() ([]string, error) {
	defaultOnce.Do(func() {
		f, err := dataFS.Open(defaultListPath)
		if err != nil {
			defaultErr = err
			return
		}
		defer func() { _ = f.Close() }()
		defaultZones, defaultErr = LoadZones(f)
	})
	if defaultErr != nil {
		return nil, fmt.Errorf("timezones: load default list: %w", defaultErr)
	}
	return append([]string{}, defaultZones...), nil
}

// LoadZones reads one zone per line. Blank lines and lines starting with '#'
// are skipped; duplicates are dropped and the result is sorted.
func LoadZones(r io.Reader) ([]string, error) {
	if r == nil {
		return nil, fmt.Errorf("timezones: missing reader")
	}
	scanner := bufio.NewScanner(r)
	zones := make([]string, 0, 512)
	seen := map[string]struct{}{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		zones = append(zones, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.Strings(zones)
	return zones, nil
}

// Search returns up to limit zones containing query, case insensitively.
// Zones starting with query come first. An empty query returns the head of
// the list when top is set and nothing otherwise.
func Search(zones []string, query string, limit int, top bool) []string {
	if limit <= 0 {
		return nil
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		if !top {
			return nil
		}
		return append([]string{}, zones[:min(limit, len(zones))]...)
	}

	var prefixed, contained []string
	for _, zone := range zones {
		lower := strings.ToLower(zone)
		switch {
		case strings.HasPrefix(lower, query):
			prefixed = append(prefixed, zone)
		case strings.Contains(lower, query):
			contained = append(contained, zone)
		}
	}
	sort.Strings(prefixed)
	sort.Strings(contained)
	out := append(prefixed, contained...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
