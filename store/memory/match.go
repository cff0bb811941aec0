package memory

import (
	"fmt"
	"time"

	"github.com/xraph/keeper/store"
)

// matches reports whether doc satisfies the filter. Plain values match
// by equality; operator maps carry a subset of the Mongo query
// operators ($in, $nin, $ne, $exists, $gt, $gte, $lt, $lte).
func matches(doc store.Record, filter store.Filter) bool {
	for field, cond := range filter {
		val, present := doc[field]
		ops, isOps := operatorMap(cond)
		if !isOps {
			if !present || compare(val, cond) != 0 {
				return false
			}
			continue
		}
		for op, want := range ops {
			if !matchOp(op, val, present, want) {
				return false
			}
		}
	}
	return true
}

func matchOp(op string, val any, present bool, want any) bool {
	switch op {
	case "$exists":
		b, _ := want.(bool)
		return present == b
	case "$ne":
		return !present || compare(val, want) != 0
	case "$in":
		return present && inList(val, want)
	case "$nin":
		return !present || !inList(val, want)
	case "$gt":
		return present && compare(val, want) > 0
	case "$gte":
		return present && compare(val, want) >= 0
	case "$lt":
		return present && compare(val, want) < 0
	case "$lte":
		return present && compare(val, want) <= 0
	default:
		return false
	}
}

// operatorMap reports whether cond is a map whose keys are all query
// operators. A map with plain keys is treated as an equality value.
func operatorMap(cond any) (map[string]any, bool) {
	m, ok := cond.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if len(k) == 0 || k[0] != '$' {
			return nil, false
		}
	}
	return m, true
}

func inList(val, list any) bool {
	switch items := list.(type) {
	case []any:
		for _, item := range items {
			if compare(val, item) == 0 {
				return true
			}
		}
	case []string:
		for _, item := range items {
			if compare(val, item) == 0 {
				return true
			}
		}
	}
	return false
}

// compare orders two loosely typed values. Numbers compare across
// int/float kinds, times chronologically, everything else through its
// string form. Returns -1, 0, or 1.
func compare(a, b any) int {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	at, aTime := a.(time.Time)
	bt, bTime := b.(time.Time)
	if aTime && bTime {
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		default:
			return 0
		}
	}
	as, bs := stringify(a), stringify(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
