package provider

import (
	"iter"
	"strings"
)

// Identity is one credential/model combination a pooled provider can call with.
type Identity struct {
	Index int // 1-based key position
	Key   string
	Model string
}

// KeyRing is an ordered credential pool. Blank keys are dropped at construction.
type KeyRing struct {
	keys []string
}

func NewKeyRing(keys ...string) KeyRing {
	ring := KeyRing{keys: make([]string, 0, len(keys))}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			ring.keys = append(ring.keys, k)
		}
	}
	return ring
}

func (r KeyRing) Len() int {
	return len(r.keys)
}

// Identities yields every key for the first model, then every key for the next model,
// and so on. With no models each key is yielded once with an empty model.
func (r KeyRing) Identities(models ...string) iter.Seq[Identity] {
	if len(models) == 0 {
		models = []string{""}
	}
	return func(yield func(Identity) bool) {
		for _, model := range models {
			for i, key := range r.keys {
				if !yield(Identity{Index: i + 1, Key: key, Model: model}) {
					return
				}
			}
		}
	}
}
