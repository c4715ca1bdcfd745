package importer

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// decodeDocument parses content as JSON, falling back to YAML, and returns
// the top-level mapping together with its canonical JSON encoding.
func decodeDocument(content []byte) (map[string]any, []byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(content, &doc); err == nil {
		if doc == nil {
			return nil, nil, fmt.Errorf("%w: top level is not an object", ErrSpecFormat)
		}
		return doc, content, nil
	}

	var yamlData any
	if err := yaml.Unmarshal(content, &yamlData); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSpecFormat, err)
	}
	doc, ok := stringifyKeys(yamlData).(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w: top level is not a mapping", ErrSpecFormat)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSpecFormat, err)
	}
	return doc, data, nil
}

// stringifyKeys rewrites YAML mappings with non-string keys (`200:`, `true:`)
// so the tree can be encoded as JSON.
func stringifyKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = stringifyKeys(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = stringifyKeys(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = stringifyKeys(item)
		}
		return val
	default:
		return v
	}
}

// versionString renders a version discriminator the way it was written.
// YAML turns an unquoted `3.0` into a float and `2` into an int.
func versionString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatFloat(val, 'f', 1, 64)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
