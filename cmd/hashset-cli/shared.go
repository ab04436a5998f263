package main

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/grafana/hashset/pkg/hashset"
)

// entry is the element stored by the CLI workloads: a string key with a
// fixed-size payload standing in for a value.
type entry struct {
	key     string
	payload [16]byte
}

// newStringSet builds a set of *entry keyed by string, hashed with the
// requested function.
func newStringSet(hashName string) (*hashset.Set[string, *entry], error) {
	typ := &hashset.Type[string, *entry]{
		ElementKey: func(e *entry) string { return e.key },
		Equal:      func(a, b string) bool { return a == b },
	}
	switch hashName {
	case "siphash":
		typ.Hash = hashset.HashString
	case "xxhash":
		typ.Hash = xxhash.Sum64String
	default:
		return nil, fmt.Errorf("unknown hash function %q", hashName)
	}
	return hashset.New(typ), nil
}

// newIntSet builds a set of uint64 elements acting as their own keys,
// hashed by the library default.
func newIntSet() *hashset.Set[uint64, uint64] {
	return hashset.New[uint64, uint64](nil)
}
