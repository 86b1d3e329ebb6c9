package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

func indentJSON(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// writeGoldenFiles creates goldenDir and writes each map entry as a pretty-printed JSON file.
func writeGoldenFiles(goldenDir string, files map[string][]byte) error {
	if err := os.MkdirAll(goldenDir, 0o750); err != nil {
		return fmt.Errorf("failed to create golden dir: %w", err)
	}
	for key, body := range files {
		pretty, err := indentJSON(body)
		if err != nil {
			return fmt.Errorf("failed to format %s golden file: %w", key, err)
		}
		if err := os.WriteFile(filepath.Join(goldenDir, key+".json"), pretty, 0o600); err != nil {
			return fmt.Errorf("failed to write %s golden file: %w", key, err)
		}
	}
	return nil
}

// writeGoldenPages writes each map entry verbatim as key.html.
func writeGoldenPages(goldenDir string, pages map[string][]byte) error {
	if err := os.MkdirAll(goldenDir, 0o750); err != nil {
		return fmt.Errorf("failed to create golden dir: %w", err)
	}
	for key, body := range pages {
		if err := os.WriteFile(filepath.Join(goldenDir, key+".html"), body, 0o600); err != nil {
			return fmt.Errorf("failed to write %s golden file: %w", key, err)
		}
	}
	return nil
}

// readGoldenPages loads the named key.html files from goldenDir. Missing files are skipped
// so a handler can answer 404 for them.
func readGoldenPages(goldenDir string, keys ...string) (map[string][]byte, error) {
	pages := make(map[string][]byte, len(keys))
	for _, key := range keys {
		body, err := os.ReadFile(filepath.Join(goldenDir, key+".html"))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s golden file: %w", key, err)
		}
		pages[key] = body
	}
	return pages, nil
}

func serveGoldenPage(w http.ResponseWriter, pages map[string][]byte, key string) {
	body, ok := pages[key]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(w, "not found (golden file not found: %s.html)", key)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}
