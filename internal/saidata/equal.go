package saidata

import "reflect"

// Equal reports whether two documents are structurally identical. Used by
// the merge engine's identity check and by dedup's idempotence tests:
// both need "same shape" rather than pointer identity.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
