// Package dataset reads labeled training samples from disk.
package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/ports"
)

// maxLineSize bounds a single sample; long messages are the largest rows
const maxLineSize = 1 << 20

// JSONLSource implements ports.TrainingDataSource over a JSON Lines file.
// Each non-blank line is an object {"kind": ..., "content": ..., "label": ...};
// lines starting with '#' are comments.
type JSONLSource struct {
	path string
}

var _ ports.TrainingDataSource = (*JSONLSource)(nil)

// NewJSONLSource creates a source reading from path
func NewJSONLSource(path string) *JSONLSource {
	return &JSONLSource{path: path}
}

// LoadSamples reads every sample in the file
func (s *JSONLSource) LoadSamples(ctx context.Context) ([]ports.LabeledSample, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	samples := make([]ports.LabeledSample, 0)
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var sample ports.LabeledSample
		if err := json.Unmarshal([]byte(text), &sample); err != nil {
			return nil, fmt.Errorf("%s:%d: failed to parse sample: %w", s.path, line, err)
		}
		if !sample.Kind.Valid() {
			return nil, fmt.Errorf("%s:%d: %w: %q", s.path, line, domain.ErrUnsupportedKind, sample.Kind)
		}
		if sample.Label == "" {
			return nil, fmt.Errorf("%s:%d: %w: missing label", s.path, line, domain.ErrInvalidTrainingSet)
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return samples, nil
}
