// Package cache provides caching implementations for Keeper query results.
package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/xraph/keeper"
)

// Key derives the storage key for a query fingerprint. Serialization is
// deterministic (map keys sorted, recursively) so equal queries always
// land on the same key, and the key is prefixed with the collection so
// backends can invalidate a whole collection at once.
//
// The fingerprint includes the actor, so result sets scoped to one
// identity are never served to another.
func Key(fp keeper.Fingerprint) string {
	var b strings.Builder
	b.WriteString(fp.Actor)
	b.WriteByte('|')
	writeValue(&b, fp.Filter)
	b.WriteByte('|')
	for _, f := range fp.Projection {
		b.WriteString(f)
		b.WriteByte(',')
	}
	b.WriteByte('|')
	for _, s := range fp.Sort {
		b.WriteString(s.Field)
		if s.Desc {
			b.WriteByte('-')
		}
		b.WriteByte(',')
	}
	fmt.Fprintf(&b, "|%d|%d", fp.Skip, fp.Limit)

	return fmt.Sprintf("keeper:%s:%016x", fp.Collection, xxhash.Sum64String(b.String()))
}

// collPrefix is the key prefix shared by all entries of a collection.
func collPrefix(coll string) string {
	return "keeper:" + coll + ":"
}

func writeValue(b *strings.Builder, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for _, k := range keys {
			b.WriteString(k)
			b.WriteByte(':')
			writeValue(b, val[k])
			b.WriteByte(';')
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for _, item := range val {
			writeValue(b, item)
			b.WriteByte(';')
		}
		b.WriteByte(']')
	case []string:
		b.WriteByte('[')
		for _, item := range val {
			b.WriteString(item)
			b.WriteByte(';')
		}
		b.WriteByte(']')
	default:
		fmt.Fprintf(b, "%v", val)
	}
}
