package cachestore

import "strings"

// Cache keys use ':' as the segment separator ("integrated:ADDR:100:tl"),
// but NATS KV keys only allow [-/_=.a-zA-Z0-9] with '.' as the hierarchy
// separator. The remote tier maps between the two forms; no other segment
// character ever contains '.', so the mapping is lossless.

func sanitizeKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}

func restoreKey(key string) string {
	return strings.ReplaceAll(key, ".", ":")
}
