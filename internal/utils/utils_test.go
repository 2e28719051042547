package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateHash(t *testing.T) {
	assert.Equal(t, `"00000000"`, CalculateHash(nil))
	assert.Equal(t, CalculateHash([]byte("abc")), CalculateHash([]byte("abc")))
	assert.NotEqual(t, CalculateHash([]byte("abc")), CalculateHash([]byte("abd")))
}

func TestGenerateRandomID(t *testing.T) {
	assert.NotEqual(t, GenerateRandomID(), GenerateRandomID())
}
