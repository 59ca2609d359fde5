// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hierarchy

// Validate parses data and checks it against schema. It returns the parsed
// document only when the data is well-formed and conforms.
func Validate(data []byte, schema *Schema) (*Document, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ValidateWithSchemaFile loads the XSD at schemaPath and validates data
// against it.
func ValidateWithSchemaFile(data []byte, schemaPath string) (*Document, error) {
	schema, err := LoadSchema(schemaPath)
	if err != nil {
		return nil, err
	}
	return Validate(data, schema)
}
