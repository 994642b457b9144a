// Package schema exposes the embedded graph file schema (version, metadata)
// for runtime use.
package schema

import (
	_ "embed"
	"encoding/json"
	"sync"
)

// Metadata captures the high-level metadata block from the canonical graph
// schema JSON.
type Metadata struct {
	Source string `json:"source"`
	Status string `json:"status"`
}

type schemaDoc struct {
	Version  string   `json:"version"`
	Metadata Metadata `json:"metadata"`
}

// Canonical graph schema content embedded for runtime distribution.
//
//go:embed graph.schema.json
var graphSchema []byte

var (
	docOnce sync.Once
	doc     schemaDoc
	docErr  error
)

func load() (schemaDoc, error) {
	docOnce.Do(func() {
		docErr = json.Unmarshal(graphSchema, &doc)
	})
	return doc, docErr
}

// GraphSchemaVersion returns the canonical schema version declared in
// docs/schema/graph.schema.json.
func GraphSchemaVersion() (string, error) {
	d, err := load()
	return d.Version, err
}

// GraphSchemaMetadata returns the schema metadata (status, source) declared
// in the canonical graph schema JSON.
func GraphSchemaMetadata() (Metadata, error) {
	d, err := load()
	return d.Metadata, err
}

// GraphSchemaJSON returns a defensive copy of the embedded graph schema
// document.
func GraphSchemaJSON() []byte {
	return append([]byte(nil), graphSchema...)
}
