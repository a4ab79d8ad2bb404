package utils

import (
	"hash/crc32"
)

// GetHashBucket 同一个 key 总是落在同一个桶
func GetHashBucket(key string, bucketSize uint32) uint32 {
	if bucketSize == 0 {
		return 0
	}
	return crc32.ChecksumIEEE([]byte(key)) % bucketSize
}
