// Package jsonschema validates envelope payloads against JSON Schema
// definitions.
//
// Schemas are registered per envelope type:
//
//	r := jsonschema.NewRegistry()
//	r.MustRegister("init", initSchema)
//
// [NewDefaultRegistry] returns a registry preloaded with the schemas of the
// built-in envelope types. A Registry satisfies [message.PayloadValidator]:
//
//	codec := message.NewCodec(message.CodecConfig{Validator: r})
//
// Schema serving:
//
//	w.Header().Set("Content-Type", "application/schema+json")
//	w.Write(r.Schemas())
package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/fxsml/devbridge/message"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Registry validates payloads against JSON Schema definitions keyed by
// envelope type. Types without a schema pass through without validation.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	compiler *jschema.Compiler
	schemas  map[string]*entry
	seq      int
}

type entry struct {
	compiled *jschema.Schema
	raw      json.RawMessage
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		compiler: jschema.NewCompiler(),
		schemas:  make(map[string]*entry),
	}
}

// NewDefaultRegistry creates a registry with schemas for init, updateState
// and extension-showing.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(string(message.TypeInit), InitSchema)
	r.MustRegister(string(message.TypeUpdateState), UpdateStateSchema)
	r.MustRegister(string(message.TypeExtensionShowing), ExtensionShowingSchema)
	return r
}

// Register compiles schemaJSON and associates it with envelopeType.
// Registering a type twice replaces its schema.
func (r *Registry) Register(envelopeType, schemaJSON string) error {
	doc, err := jschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("jsonschema: parsing schema for %s: %w", envelopeType, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	uri := schemaURI(envelopeType, r.seq)
	if err := r.compiler.AddResource(uri, doc); err != nil {
		return fmt.Errorf("jsonschema: adding resource for %s: %w", envelopeType, err)
	}
	compiled, err := r.compiler.Compile(uri)
	if err != nil {
		return fmt.Errorf("jsonschema: compiling schema for %s: %w", envelopeType, err)
	}
	r.schemas[envelopeType] = &entry{compiled: compiled, raw: json.RawMessage(schemaJSON)}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(envelopeType, schemaJSON string) {
	if err := r.Register(envelopeType, schemaJSON); err != nil {
		panic(err)
	}
}

// Validate checks the JSON payload of an envelope of the given type.
func (r *Registry) Validate(envelopeType string, payload []byte) error {
	r.mu.RLock()
	e, ok := r.schemas[envelopeType]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	inst, err := jschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return e.compiled.Validate(inst)
}

// Schema returns the raw schema for envelopeType, or nil.
func (r *Registry) Schema(envelopeType string) json.RawMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.schemas[envelopeType]; ok {
		return e.raw
	}
	return nil
}

// Schemas returns all registered schemas under $defs, keyed by envelope type.
func (r *Registry) Schemas() json.RawMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make(map[string]json.RawMessage, len(r.schemas))
	for t, e := range r.schemas {
		defs[t] = e.raw
	}

	doc := struct {
		Schema string                     `json:"$schema"`
		Defs   map[string]json.RawMessage `json:"$defs"`
	}{
		Schema: "https://json-schema.org/draft/2020-12/schema",
		Defs:   defs,
	}
	data, _ := json.Marshal(doc)
	return data
}

var _ message.PayloadValidator = (*Registry)(nil)

// The compiler caches by URI, so re-registration needs a fresh one.
func schemaURI(envelopeType string, n int) string {
	return fmt.Sprintf("urn:devbridge:schema:%s:%d", envelopeType, n)
}
