package block

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// catalogSchema описывает файл каталога: один материал или список под materials.
// Лишние ключи запрещены, чтобы опечатка вроде "opacty" не превращалась в
// прозрачный материал.
const catalogSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "level": {"type": "integer", "minimum": 0, "maximum": 15},
    "entry": {
      "type": "object",
      "required": ["id", "name"],
      "additionalProperties": false,
      "properties": {
        "id": {"type": "integer", "minimum": 0, "maximum": 65535},
        "name": {"type": "string", "minLength": 1},
        "opacity": {"$ref": "#/$defs/level"},
        "light": {"$ref": "#/$defs/level"},
        "occludes": {"type": "array", "items": {"type": "string"}, "uniqueItems": true}
      }
    }
  },
  "oneOf": [
    {
      "type": "object",
      "required": ["materials"],
      "additionalProperties": false,
      "properties": {"materials": {"type": "array", "items": {"$ref": "#/$defs/entry"}}}
    },
    {"$ref": "#/$defs/entry"}
  ]
}`

var compiledCatalogSchema = jsonschema.MustCompileString("lightcheck://catalog.schema.json", catalogSchema)

// validateCatalog проверяет сырой документ каталога по схеме и возвращает его
// в виде дерева yaml. Пустой документ допустим: doc == nil.
func validateCatalog(data []byte) (doc interface{}, err error) {
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	// yaml.v3 отдаёт int и map[string]interface{}; схема работает с JSON-значениями
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("каталог не представим в JSON: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if err := compiledCatalogSchema.Validate(value); err != nil {
		return nil, fmt.Errorf("каталог не соответствует схеме: %w", err)
	}
	return doc, nil
}
