package search

import (
	"bytes"
	"encoding/json"
	"strings"

	"sbname/internal/catalog/models"
)

// maxEnvelopeDepth bounds how many wrapper objects Decode unwraps.
const maxEnvelopeDepth = 8

// envelopeKeys are the wrapper keys Decode unwraps, in priority order.
// "query" → "results" → "json" is the YQL envelope; the product search API
// wraps its hits in "ProductSearchResults".
var envelopeKeys = []string{"query", "results", "json", "ProductSearchResults", "search-results"}

// Field spellings accepted for a product record, in priority order.
var (
	codeKeys     = []string{"ProductNumber", "code", "productNumber"}
	nameKeys     = []string{"ProductNameBold", "name", "primaryName"}
	extendedKeys = []string{"ProductNameThin", "extendedName", "secondaryName"}
)

// Decode normalizes a search response body into zero or more products.
//
// Shapes are tried in a fixed order: null, a known wrapper object (unwrapped
// and decoded again), an array of records, a single record object (coerced to
// a one-element slice). Anything else decodes to no products. Only a body that
// is not valid JSON is an error.
func Decode(body []byte) ([]models.Product, error) {
	if !json.Valid(body) {
		return nil, NewSearchError(ErrorBadData, "decode", "response is not valid JSON", nil)
	}
	return decodeValue(body, 0), nil
}

func decodeValue(raw json.RawMessage, depth int) []models.Product {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || depth > maxEnvelopeDepth {
		return nil
	}

	switch raw[0] {
	case '[':
		return decodeArray(raw)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		for _, key := range envelopeKeys {
			if inner, ok := obj[key]; ok {
				return decodeValue(inner, depth+1)
			}
		}
		if p, ok := decodeRecord(obj); ok {
			return []models.Product{p}
		}
	}
	return nil
}

func decodeArray(raw json.RawMessage) []models.Product {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	products := make([]models.Product, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		if p, ok := decodeRecord(obj); ok {
			products = append(products, p)
		}
	}
	return products
}

// decodeRecord reads a product from obj. It reports false when no code field is present.
func decodeRecord(obj map[string]json.RawMessage) (models.Product, bool) {
	code, ok := firstField(obj, codeKeys)
	if !ok || code == "" {
		return models.Product{}, false
	}
	name, _ := firstField(obj, nameKeys)
	extended, _ := firstField(obj, extendedKeys)
	return models.Product{Code: code, Name: name, ExtendedName: extended}, true
}

func firstField(obj map[string]json.RawMessage, keys []string) (string, bool) {
	for _, key := range keys {
		if raw, ok := obj[key]; ok {
			return scalarString(raw), true
		}
	}
	return "", false
}

// scalarString renders a JSON string or number as text. null, the literal
// string "null", and non-scalar values become "".
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "null" {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// FilterByPrefix keeps products whose code starts with code. The search
// endpoint matches loosely, so unrelated hits are dropped here.
func FilterByPrefix(products []models.Product, code string) []models.Product {
	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.HasPrefix(p.Code, code) {
			matched = append(matched, p)
		}
	}
	return matched
}
