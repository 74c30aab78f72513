package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// artifact is the on-disk envelope of a trained model
type artifact struct {
	Kind      domain.ScanKind `json:"kind"`
	Labels    []string        `json:"labels"`
	TrainedAt time.Time       `json:"trained_at"`
	Model     json.RawMessage `json:"model"`
}

// readArtifact decodes the model stored at path into dst after checking that
// it was written for the same kind and label order.
func readArtifact(path string, kind domain.ScanKind, labels []string, dst any) error {
	if path == "" {
		return fmt.Errorf("no artifact path configured for %s classifier", kind)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("failed to decode artifact: %w", err)
	}
	if a.Kind != kind {
		return fmt.Errorf("artifact %s holds a %s model, expected %s", path, a.Kind, kind)
	}
	if !slices.Equal(a.Labels, labels) {
		return fmt.Errorf("artifact %s has labels %v, expected %v", path, a.Labels, labels)
	}

	if err := json.Unmarshal(a.Model, dst); err != nil {
		return fmt.Errorf("failed to decode %s model: %w", kind, err)
	}
	return nil
}

// writeArtifact replaces the file at path atomically: readers see either the
// previous artifact or the new one.
func writeArtifact(path string, kind domain.ScanKind, labels []string, model any) error {
	if path == "" {
		return nil
	}

	raw, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to encode %s model: %w", kind, err)
	}
	data, err := json.Marshal(artifact{
		Kind:      kind,
		Labels:    labels,
		TrainedAt: time.Now().UTC(),
		Model:     raw,
	})
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to install artifact: %w", err)
	}
	return nil
}
