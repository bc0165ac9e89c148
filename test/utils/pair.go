package utils

import (
	"fmt"
	"math/rand"

	"github.com/yoshihanslin/Database-BTree/pkg/rid"
)

// KeyValuePair is a (string key, RID) pair used to drive B+-tree tests.
type KeyValuePair struct {
	Key string
	Val rid.RID
}

// GenerateRandomKeyValuePairs generates n random key-value pairs with unique
// keys. Returns the n pairs generated in a slice and a map that maps the
// generated keys to the generated RIDs.
func GenerateRandomKeyValuePairs(n int64) ([]KeyValuePair, map[string]rid.RID) {
	entries := make([]KeyValuePair, n)
	answerKey := make(map[string]rid.RID, n)
	for i := int64(0); i < n; i++ {
		var key string
		for {
			key = fmt.Sprintf("key-%016x", rand.Int63())
			if _, ok := answerKey[key]; !ok {
				break
			}
		}
		val := rid.New(rand.Uint32(), int16(rand.Int31n(1<<15)))
		answerKey[key] = val
		entries[i] = KeyValuePair{Key: key, Val: val}
	}
	return entries, answerKey
}
