package item

import "strconv"

// ListKey caches the full list.
const ListKey = "items:all"

// DetailKey caches a single item.
func DetailKey(id int64) string {
	return "items:" + strconv.FormatInt(id, 10)
}
