// Package manifest persists a database's immutable creation parameters
// (dim, metric, index_key, query_params) as manifest.json in the working
// directory.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const fileName = "manifest.json"

// Manifest records the parameters a working directory was created with.
type Manifest struct {
	Dim         int    `json:"dim"`
	Metric      int    `json:"metric"`
	IndexKey    string `json:"index_key"`
	QueryParams string `json:"query_params,omitempty"`
}

// Load reads manifest.json from dir. It returns (nil, nil) if the file does
// not exist yet (a brand-new working directory).
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	return &m, nil
}

// Save writes m to manifest.json in dir.
func Save(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// Matches reports whether m was created with the given dim and metric.
// index_key/query_params are opaque kernel tuning strings and are not
// compared here; only the parameters that determine base.fvecs's own
// record layout (dim) and the declared distance semantics (metric) must
// agree across opens.
func (m *Manifest) Matches(dim, metric int) bool {
	return m.Dim == dim && m.Metric == metric
}
