package mirror

import (
	"encoding/json"
	"fmt"

	"github.com/sitex/tgtemplates/internal/domain"
)

// Codec serializes a widget-template list to the transport-agnostic payload
// shared by every surface. The wire format is a plain JSON array so the
// widget and watch surfaces can read it with their stock decoders.
type Codec struct{}

func (Codec) Encode(templates []domain.WidgetTemplate) ([]byte, error) {
	if templates == nil {
		templates = []domain.WidgetTemplate{}
	}
	return json.Marshal(templates)
}

// Decode parses a mirror payload. A corrupt or schema-incompatible payload
// yields an empty list together with the error: the consumer has no recovery
// path other than "no templates yet", so availability wins over strictness.
func (Codec) Decode(data []byte) ([]domain.WidgetTemplate, error) {
	if len(data) == 0 {
		return []domain.WidgetTemplate{}, nil
	}

	var templates []domain.WidgetTemplate
	if err := json.Unmarshal(data, &templates); err != nil {
		return []domain.WidgetTemplate{}, fmt.Errorf("decode mirror payload: %w", err)
	}
	if templates == nil {
		templates = []domain.WidgetTemplate{}
	}
	return templates, nil
}
