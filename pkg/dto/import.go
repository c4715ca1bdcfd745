package dto

import (
	"encoding/json"

	"github.com/dimitrije/nikode-engine/internal/models"
)

// ImportRequest is the JSON form of an import. Content is either the document
// text as a JSON string or the JSON document itself. Non-JSON bodies are read
// raw with the name taken from ?name=.
type ImportRequest struct {
	Content json.RawMessage `json:"content"`
	Name    string          `json:"name,omitempty"`
}

// Document returns the document bytes carried in Content.
func (r ImportRequest) Document() []byte {
	var text string
	if err := json.Unmarshal(r.Content, &text); err == nil {
		return []byte(text)
	}
	return r.Content
}

type ImportResponse struct {
	Collection *models.Collection `json:"collection"`
	Folders    int                `json:"folders"`
	Requests   int                `json:"requests"`
}
