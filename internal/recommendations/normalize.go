package recommendations

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Keys that may wrap the id list in an object payload, in lookup order.
var listKeys = []string{"recommendations", "items", "posts", "users", "ids", "data"}

// Keys that may carry the id inside an object element.
var idKeys = []string{"id", "_id", "item_id", "ItemId"}

// NormalizeIDs accepts the payload shapes recommenders commonly return:
//
//	["a", "b"]
//	[{"id": "a"}, {"_id": "b"}]
//	{"recommendations": [...]}   (or items, posts, users, ids, data)
//
// Duplicates are dropped keeping the first position. Elements without a
// usable id are skipped.
func NormalizeIDs(body []byte) ([]string, error) {
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}

	list, ok := raw.([]interface{})
	if !ok {
		obj, isObj := raw.(map[string]interface{})
		if !isObj {
			return nil, fmt.Errorf("unexpected recommendations payload %T", raw)
		}
		for _, key := range listKeys {
			if inner, found := obj[key].([]interface{}); found {
				list, ok = inner, true
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("no id list in recommendations payload")
		}
	}

	seen := make(map[string]bool, len(list))
	ids := make([]string, 0, len(list))
	for _, item := range list {
		id := idOf(item)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func idOf(item interface{}) string {
	switch v := item.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]interface{}:
		for _, key := range idKeys {
			if id := idOf(v[key]); id != "" {
				return id
			}
		}
	}
	return ""
}
