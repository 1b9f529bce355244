package xtts

import (
	"bytes"
	"encoding/json"
	"fmt"

	"xtts-desktop/internal/domain"
)

// languagesResponse is the /languages body.
type languagesResponse struct {
	Languages orderedLanguages `json:"languages"`
}

// orderedLanguages decodes a JSON object while keeping key order.
type orderedLanguages domain.LanguageCatalog

// UnmarshalJSON walks object tokens so catalog order follows the server.
func (o *orderedLanguages) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("languages: expected object, got %v", tok)
	}

	out := make(orderedLanguages, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("languages: unexpected key %v", keyTok)
		}
		var code string
		if err := dec.Decode(&code); err != nil {
			return fmt.Errorf("languages: code for %q: %w", name, err)
		}
		out = append(out, domain.Language{Name: name, Code: code})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*o = out
	return nil
}
