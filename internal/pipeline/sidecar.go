package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ozonelab/o3skim/internal/domain"
)

// sidecar is the YAML document written next to the partition files. The
// merged metadata keeps its nesting; provenance records how and when the
// output was produced.
type sidecar struct {
	Metadata   domain.Metadata   `yaml:"metadata"`
	Provenance sidecarProvenance `yaml:"provenance"`
}

type sidecarProvenance struct {
	SkimmedAt time.Time `yaml:"skimmed_at"`
	GroupBy   string    `yaml:"groupby"`
}

func (e *Engine) writeSidecar(dir string, metadata domain.Metadata, groupby GroupBy) error {
	doc := sidecar{
		Metadata: metadata,
		Provenance: sidecarProvenance{
			SkimmedAt: domain.Now(),
			GroupBy:   string(groupby),
		},
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode metadata sidecar: %w", err)
	}
	path := filepath.Join(dir, SidecarName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata sidecar: %w", err)
	}
	return nil
}
