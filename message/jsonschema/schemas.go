package jsonschema

// InitSchema describes the init payload. Node and mark specs are ordered
// maps serialized as {"content": [key, value, ...]}.
const InitSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"schemaSpec": {
			"type": "object",
			"properties": {
				"nodes": {
					"type": "object",
					"properties": { "content": { "type": "array" } },
					"required": ["content"]
				},
				"marks": {
					"type": "object",
					"properties": { "content": { "type": "array" } },
					"required": ["content"]
				},
				"topNode": { "type": "string" }
			},
			"required": ["nodes", "marks"]
		},
		"state": { "type": "object" },
		"pluginsAsJSON": { "type": "string" },
		"viewAttrs": { "type": ["object", "null"] },
		"session": { "type": "string" }
	},
	"required": ["schemaSpec", "state", "pluginsAsJSON"]
}`

// UpdateStateSchema describes the updateState payload.
const UpdateStateSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"state": { "type": "object" }
	},
	"required": ["state"]
}`

// ExtensionShowingSchema describes the extension-showing payload.
const ExtensionShowingSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "boolean"
}`
