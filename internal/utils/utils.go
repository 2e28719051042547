package utils

import (
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"
)

// CalculateHash generates a quoted CRC32 hash of the data, usable as a
// Version header or to detect unchanged content
func CalculateHash(data []byte) string {
	table := crc32.MakeTable(crc32.IEEE)
	return fmt.Sprintf("\"%08x\"", crc32.Checksum(data, table))
}

// GenerateRandomID generates a random ID for subscriptions and listeners
func GenerateRandomID() string {
	return uuid.NewString()
}
