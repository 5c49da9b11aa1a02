package normalizer

import "sort"

// Shape is the structural form an inbound payload was classified as.
type Shape int

const (
	ShapeSingle Shape = iota
	ShapeList
	ShapeWrapper
	ShapeMap
)

func (s Shape) String() string {
	switch s {
	case ShapeList:
		return "list"
	case ShapeWrapper:
		return "wrapper"
	case ShapeMap:
		return "map"
	default:
		return "single"
	}
}

// ShapeRules names the wrapper keys a kind accepts.
type ShapeRules struct {
	// ListField holds a list of items on a wrapper object ("items", "payload").
	ListField string
	// MapField holds a category->score object ("symptoms"). Empty disables the map shape.
	MapField string
	// MapKey and MapValue are the canonical fields a map entry expands into.
	MapKey   string
	MapValue string
}

// Envelope is the payload after classification: a flat list of raw items plus
// the wrapper object, if any, whose inheritable fields back-fill the items.
type Envelope struct {
	Shape  Shape
	Items  []map[string]interface{}
	Shared map[string]interface{}
	// Skipped counts list elements that were not objects.
	Skipped int
}

// Classify decides the payload shape before any field is read. Precedence:
// list, wrapper with a list field, wrapper with a map field, single object.
func Classify(payload interface{}, rules ShapeRules) Envelope {
	if list, ok := payload.([]interface{}); ok {
		items, skipped := objects(list)
		return Envelope{Shape: ShapeList, Items: items, Skipped: skipped}
	}

	obj, ok := payload.(map[string]interface{})
	if !ok {
		return Envelope{Shape: ShapeSingle}
	}

	if rules.ListField != "" {
		if list, ok := obj[rules.ListField].([]interface{}); ok {
			items, skipped := objects(list)
			return Envelope{Shape: ShapeWrapper, Items: items, Shared: obj, Skipped: skipped}
		}
	}

	if rules.MapField != "" {
		if entries, ok := obj[rules.MapField].(map[string]interface{}); ok {
			return Envelope{Shape: ShapeMap, Items: expandMap(entries, rules), Shared: obj}
		}
	}

	return Envelope{Shape: ShapeSingle, Items: []map[string]interface{}{obj}}
}

func objects(list []interface{}) ([]map[string]interface{}, int) {
	items := make([]map[string]interface{}, 0, len(list))
	for _, el := range list {
		if m, ok := el.(map[string]interface{}); ok {
			items = append(items, m)
		}
	}
	return items, len(list) - len(items)
}

// expandMap turns {"nausea": 2} into {MapKey: "nausea", MapValue: 2}. An object
// value is taken as a full item and only gets the category filled in.
func expandMap(entries map[string]interface{}, rules ShapeRules) []map[string]interface{} {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]map[string]interface{}, 0, len(keys))
	for _, k := range keys {
		if nested, ok := entries[k].(map[string]interface{}); ok {
			item := make(map[string]interface{}, len(nested)+1)
			for nk, nv := range nested {
				item[nk] = nv
			}
			if !present(item[rules.MapKey]) {
				item[rules.MapKey] = k
			}
			items = append(items, item)
			continue
		}
		items = append(items, map[string]interface{}{
			rules.MapKey:   k,
			rules.MapValue: entries[k],
		})
	}
	return items
}
