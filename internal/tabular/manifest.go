package tabular

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/croptrust/gapanalysis-cli/internal/diag"
	"github.com/croptrust/gapanalysis-cli/internal/model"
)

// Manifest is the YAML sidecar written next to run outputs so a result
// file can always be traced back to the run that produced it.
type Manifest struct {
	RunID       string            `yaml:"run_id"`
	CreatedAt   time.Time         `yaml:"created_at"`
	Params      model.RunParams   `yaml:"params"`
	Outputs     []string          `yaml:"outputs,omitempty"`
	Diagnostics []diag.Diagnostic `yaml:"diagnostics,omitempty"`
}

// WriteManifest writes the manifest as YAML.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "tabular: marshal manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "tabular: write manifest %s", path)
	}
	return nil
}
