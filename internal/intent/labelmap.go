package intent

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/danielpatrickdp/amal/go-router/internal/faults"
)

// #region mapping

// LabelMapping maps classifier output indices to label names as the model
// reports them. Names are resolved to Labels at classification time so an
// unexpected name surfaces as ErrUnknownIntentLabel instead of a default.
type LabelMapping struct {
	names []string
}

// DefaultLabelMapping returns the canonical four-label order.
func DefaultLabelMapping() LabelMapping {
	names := make([]string, len(Labels))
	for i, l := range Labels {
		names[i] = l.DisplayName()
	}
	return LabelMapping{names: names}
}

// NewLabelMapping builds a mapping from names in index order.
func NewLabelMapping(names ...string) LabelMapping {
	return LabelMapping{names: append([]string(nil), names...)}
}

// Len returns the number of mapped indices.
func (m LabelMapping) Len() int { return len(m.names) }

// Resolve returns the Label at index i.
func (m LabelMapping) Resolve(i int) (Label, error) {
	if i < 0 || i >= len(m.names) {
		return "", fmt.Errorf("%w: index %d has no mapping", faults.ErrUnknownIntentLabel, i)
	}
	l, ok := ParseLabel(m.names[i])
	if !ok {
		return "", fmt.Errorf("%w: %q", faults.ErrUnknownIntentLabel, m.names[i])
	}
	return l, nil
}

// #endregion mapping

// #region load

type labelMappingFile struct {
	IDToLabel map[string]string `json:"id_to_label"`
}

// LoadLabelMapping reads a label_mapping.json exported with the intent model:
// {"id_to_label": {"0": "Looking for support", ...}}. Indices must be
// contiguous from 0.
func LoadLabelMapping(path string) (LabelMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LabelMapping{}, fmt.Errorf("%w: read label mapping %s: %v", faults.ErrConfiguration, path, err)
	}
	return ParseLabelMapping(data)
}

// ParseLabelMapping decodes the label_mapping.json format.
func ParseLabelMapping(data []byte) (LabelMapping, error) {
	var f labelMappingFile
	if err := json.Unmarshal(data, &f); err != nil {
		return LabelMapping{}, fmt.Errorf("%w: parse label mapping: %v", faults.ErrConfiguration, err)
	}
	if len(f.IDToLabel) == 0 {
		return LabelMapping{}, faults.Configf("label mapping is empty")
	}

	names := make([]string, len(f.IDToLabel))
	for k, name := range f.IDToLabel {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 || idx >= len(names) {
			return LabelMapping{}, faults.Configf("label mapping index %q out of range", k)
		}
		names[idx] = name
	}
	for i, n := range names {
		if n == "" {
			return LabelMapping{}, faults.Configf("label mapping index %d missing", i)
		}
	}
	return LabelMapping{names: names}, nil
}

// #endregion load
