package arweave

import (
	"crypto/sha512"
	"strconv"
)

// deepHash implements the Arweave deep-hash over nested byte lists.
// v must be []byte or []any whose elements follow the same rule.
func deepHash(v any) []byte {
	switch x := v.(type) {
	case []byte:
		tag := sha384([]byte("blob" + strconv.Itoa(len(x))))
		return sha384(append(tag, sha384(x)...))
	case []any:
		acc := sha384([]byte("list" + strconv.Itoa(len(x))))
		for _, child := range x {
			acc = sha384(append(acc, deepHash(child)...))
		}
		return acc
	}
	panic("arweave: deepHash of unsupported type")
}

func sha384(b []byte) []byte {
	sum := sha512.Sum384(b)
	return sum[:]
}
