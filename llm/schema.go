package llm

// Schema helpers for building JSON Schema definitions.

// ObjectSchema creates an object schema with the given properties.
func ObjectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProperty creates a string property with optional description.
func StringProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// ArrayProperty creates an array property with the given item type.
func ArrayProperty(description string, itemType map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items":       itemType,
	}
}

// Nullable allows null in place of the given schema.
func Nullable(schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"anyOf": []interface{}{schema, map[string]interface{}{"type": "null"}},
	}
}

// TripleSchema describes one extracted {subject, predicate, object} fact.
func TripleSchema() map[string]interface{} {
	return ObjectSchema(map[string]interface{}{
		"subject":   StringProperty("Who or what the fact is about; \"User\" for the person speaking"),
		"predicate": StringProperty("The relation, as a short verb phrase (\"likes\", \"is named\", \"owns\")"),
		"object":    StringProperty("The value of the relation"),
	}, "subject", "predicate", "object")
}
