// Package batch groups rows loaded for many owners at once.
//
// Relations loaded in bulk come back as one flat result set. These helpers
// split it again by key so every owner gets its own rows, in the order the
// database returned them.
package batch

// KeyFunc extracts the grouping key of a value. It reports false for
// values without a usable key (a NULL foreign key, for example).
type KeyFunc[K comparable, V any] func(V) (K, bool)

// Keys returns the distinct keys of values in first-seen order.
func Keys[K comparable, V any](values []V, keyFn KeyFunc[K, V]) []K {
	seen := make(map[K]struct{}, len(values))
	keys := make([]K, 0, len(values))
	for _, v := range values {
		k, ok := keyFn(v)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// GroupByKey groups values by key. Values keep their relative order
// inside each group.
//
//	posts := GroupByKey(rows, func(p *Post) (int64, bool) { return p.UserID, true })
//	// posts[userID] holds the posts of that user
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	groups := make(map[K][]V)
	for _, v := range values {
		if k, ok := keyFn(v); ok {
			groups[k] = append(groups[k], v)
		}
	}
	return groups
}

// IndexByKey maps every key to the first value holding it.
func IndexByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K]V {
	index := make(map[K]V, len(values))
	for _, v := range values {
		k, ok := keyFn(v)
		if !ok {
			continue
		}
		if _, dup := index[k]; !dup {
			index[k] = v
		}
	}
	return index
}

// OrderGroupsByKeys returns the group of every key, in key order.
// Keys without a group get a nil slice.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	out := make([][]V, len(keys))
	for i, k := range keys {
		out[i] = groups[k]
	}
	return out
}
