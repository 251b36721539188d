package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "http://minio:9000/photos/2025/VEH001/a.jpeg", PublicURL("minio:9000", false, "photos", "2025/VEH001/a.jpeg"))
	assert.Equal(t, "https://cdn.example/photos/k", PublicURL("cdn.example/", true, "photos", "k"))
	assert.Equal(t, "http://x/photos/k", PublicURL("http://x", true, "photos", "k"))
}
