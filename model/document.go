package model

import "strings"

// IDField is the key under which a document carries its identifier.
const IDField = "_id"

// Document is a flexible map representing a JSON document.
// The "_id" key is the only required field; everything else is addressed
// through FieldBoost paths chosen at query time.
// Example: doc["title"], doc["author"].(map[string]interface{})["name"]
type Document map[string]interface{}

// GetDocumentID returns the document's "_id" if it is a non-empty string.
func (d Document) GetDocumentID() (string, bool) {
	if id, ok := d[IDField]; ok {
		if str, sok := id.(string); sok {
			if str != "" {
				return str, true
			}
		}
	}
	return "", false
}

// Clone returns a shallow copy of the document. Nested maps and slices are shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	cp := make(Document, len(d))
	for k, v := range d {
		cp[k] = v
	}
	return cp
}

// Lookup resolves a field name, following dotted paths through nested
// objects and array indexes. The boolean reports whether every step existed.
func (d Document) Lookup(field string) (interface{}, bool) {
	if v, ok := d[field]; ok || !strings.Contains(field, ".") {
		return v, ok
	}

	var current interface{} = map[string]interface{}(d)
	for _, key := range strings.Split(field, ".") {
		next, ok := step(current, key)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func step(container interface{}, key string) (interface{}, bool) {
	switch c := container.(type) {
	case map[string]interface{}:
		v, ok := c[key]
		return v, ok
	case Document:
		v, ok := c[key]
		return v, ok
	}
	v := lookup(container, key)
	return v, v != nil
}
