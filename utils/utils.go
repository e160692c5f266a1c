package utils

import (
	"crypto/md5"
	"strings"

	"github.com/gofrs/uuid"
)

// NamespacedUuid derives a stable id from a namespace and ordered parts.
func NamespacedUuid(namespace string, parts ...string) uuid.UUID {
	return uuidHash([]byte(namespace + ":" + strings.Join(parts, "\x00")))
}

// uuidHash builds a version 3 style uuid from the md5 of b.
func uuidHash(b []byte) uuid.UUID {
	sum := md5.Sum(b)
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.FromBytesOrNil(sum[:])
}
