//go:build property
// +build property

package canonical

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestCanonicalDeterminism verifies Marshal(obj) is stable across calls
// for arbitrary string-keyed objects.
func TestCanonicalDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("canonical encoding is deterministic", prop.ForAll(
		func(keys []string, values []string) bool {
			obj := make(map[string]interface{})
			for i := 0; i < len(keys) && i < len(values); i++ {
				if keys[i] != "" {
					obj[keys[i]] = values[i]
				}
			}

			b1, err1 := Marshal(obj)
			b2, err2 := Marshal(obj)
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}
			return string(b1) == string(b2)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("hash is invariant under key insertion order", prop.ForAll(
		func(keys []string, values []int) bool {
			n := len(keys)
			if len(values) < n {
				n = len(values)
			}
			forward := make(map[string]interface{})
			reverse := make(map[string]interface{})
			for i := 0; i < n; i++ {
				forward[keys[i]] = values[i]
			}
			for i := n - 1; i >= 0; i-- {
				reverse[keys[i]] = values[i]
			}

			h1, err1 := Hash(forward)
			h2, err2 := Hash(reverse)
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}
			return h1 == h2
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t)
}
