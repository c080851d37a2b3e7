package v1

import (
	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema describing the v1 export file.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(new(Export))
	schema.Title = "Lux replay export v1"
	schema.Description = "Per-turn frames generated from a Lux AI replay log"
	return schema
}
