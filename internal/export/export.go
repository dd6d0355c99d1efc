// Package export writes the relation graph as JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/phobologic/javamap/internal/model"
	"github.com/phobologic/javamap/internal/rules"
)

// Document is the JSON export. Relations keep graph order.
type Document struct {
	RunID        string           `json:"run_id"`
	RulesVersion string           `json:"rules_version"`
	Relations    []model.Relation `json:"relations"`
}

// NewDocument wraps relations with a fresh run id.
func NewDocument(rels []model.Relation) Document {
	if rels == nil {
		rels = []model.Relation{}
	}
	return Document{
		RunID:        uuid.NewString(),
		RulesVersion: rules.Version,
		Relations:    rels,
	}
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	return nil
}

// WriteJSONL writes one relation per line.
func WriteJSONL(w io.Writer, rels []model.Relation) error {
	enc := json.NewEncoder(w)
	for i := range rels {
		if err := enc.Encode(&rels[i]); err != nil {
			return fmt.Errorf("encoding relation %d: %w", i, err)
		}
	}
	return nil
}

// ReadJSON decodes a document written by WriteJSON.
func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decoding graph: %w", err)
	}
	return doc, nil
}
