package assets

import (
	"encoding/json"
	"strings"

	"github.com/spaghettifunk/gravity/engine/core"
)

// expectedKind is the JSON kind a required parameter must decode to.
type expectedKind uint8

const (
	kindString expectedKind = iota
	kindInteger
	kindBoolean
	kindList
)

type requiredParameter struct {
	name string
	kind expectedKind
}

var assetRequiredParameters = []requiredParameter{
	{name: "id", kind: kindInteger},
	{name: "type", kind: kindString},
}

var shaderRequiredParameters = []requiredParameter{
	{name: "stages", kind: kindList},
}

var shaderStageRequiredParameters = []requiredParameter{
	{name: "spirv", kind: kindString},
	{name: "meta", kind: kindString},
	{name: "type", kind: kindString},
}

var textureRequiredParameters = []requiredParameter{
	{name: "image", kind: kindString},
	{name: "colour_space", kind: kindString},
	{name: "mipmaps", kind: kindBoolean},
}

var meshRequiredParameters = []requiredParameter{
	{name: "source", kind: kindString},
	{name: "submeshes", kind: kindList},
}

var submeshRequiredParameters = []requiredParameter{
	{name: "name", kind: kindString},
	{name: "first_index", kind: kindInteger},
	{name: "index_count", kind: kindInteger},
	{name: "material", kind: kindInteger},
}

var materialRequiredParameters = []requiredParameter{
	{name: "textures", kind: kindList},
	{name: "parameters", kind: kindList},
}

var materialTextureRequiredParameters = []requiredParameter{
	{name: "name", kind: kindString},
	{name: "asset", kind: kindInteger},
	{name: "sampler", kind: kindString},
}

var materialParameterRequiredParameters = []requiredParameter{
	{name: "name", kind: kindString},
}

func isInteger(value interface{}) bool {
	n, ok := value.(json.Number)
	if !ok {
		return false
	}
	return !strings.ContainsAny(n.String(), ".eE")
}

// validateRequiredParameters checks that every required field is present
// with the expected kind. Unknown fields are ignored.
func validateRequiredParameters(object map[string]interface{}, parameters []requiredParameter) error {
	for _, parameter := range parameters {
		value, ok := object[parameter.name]
		if !ok {
			return core.SchemaErrorf("missing required field %q", parameter.name)
		}

		switch parameter.kind {
		case kindString:
			if _, ok := value.(string); !ok {
				return core.SchemaErrorf("field %q is not a string", parameter.name)
			}
		case kindInteger:
			if !isInteger(value) {
				return core.SchemaErrorf("field %q is not an integer", parameter.name)
			}
		case kindBoolean:
			if _, ok := value.(bool); !ok {
				return core.SchemaErrorf("field %q is not a boolean", parameter.name)
			}
		case kindList:
			if _, ok := value.([]interface{}); !ok {
				return core.SchemaErrorf("field %q is not a list", parameter.name)
			}
		}
	}
	return nil
}

func integerField(object map[string]interface{}, name string) int64 {
	n := object[name].(json.Number)
	v, _ := n.Int64()
	return v
}

func stringField(object map[string]interface{}, name string) string {
	return object[name].(string)
}

func boolField(object map[string]interface{}, name string) bool {
	return object[name].(bool)
}

func listField(object map[string]interface{}, name string) []interface{} {
	return object[name].([]interface{})
}
