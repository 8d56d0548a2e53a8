package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseSources reads source identifiers one per line, skipping blank lines and # comments
func ParseSources(r io.Reader) ([]string, error) {
	var res []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		res = append(res, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	return res, nil
}

// ParseSourcesFile reads source identifiers from a file
func ParseSourcesFile(path string) ([]string, error) {
	fh, err := os.Open(path) //nolint:gosec // path comes from CLI flag or config
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer fh.Close()
	return ParseSources(fh)
}

// ParseSourcesList splits a comma separated list of identifiers, dropping empty items
func ParseSourcesList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			res = append(res, p)
		}
	}
	return res
}
