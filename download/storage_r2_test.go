package download

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestR2ConfigMissing(t *testing.T) {
	t.Run("empty config misses everything", func(t *testing.T) {
		var cfg R2Config
		assert.False(t, cfg.Complete())
		assert.Equal(t, []string{"R2_ENDPOINT", "R2_BUCKET", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY"}, cfg.Missing())
	})

	t.Run("partial config names the gaps", func(t *testing.T) {
		cfg := R2Config{Endpoint: "https://acct.r2.cloudflarestorage.com", Bucket: "media"}
		assert.False(t, cfg.Complete())
		assert.Equal(t, []string{"R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY"}, cfg.Missing())
	})

	t.Run("full config is complete", func(t *testing.T) {
		cfg := R2Config{
			Endpoint:        "https://acct.r2.cloudflarestorage.com",
			Bucket:          "media",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
		}
		assert.True(t, cfg.Complete())
		assert.Empty(t, cfg.Missing())
	})
}

func TestR2ConfigTTL(t *testing.T) {
	assert.Equal(t, time.Hour, R2Config{}.TTL())
	assert.Equal(t, time.Hour, R2Config{SignedURLTTL: 3600}.TTL())
	assert.Equal(t, 90*time.Second, R2Config{SignedURLTTL: 90}.TTL())
	assert.Equal(t, time.Hour, R2Config{SignedURLTTL: -5}.TTL())
}

func TestR2SignedURLWithPublicBase(t *testing.T) {
	// a public base short-circuits presigning entirely, no client needed
	st := &R2Storage{bucket: "media", publicBase: "https://media.example.com/"}

	link, validity, err := st.SignedURL(context.Background(), ObjectRef{Bucket: "media", Key: "instagram/Cxyz123/clip.mp4.zip"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/instagram/Cxyz123/clip.mp4.zip", link)
	assert.Equal(t, time.Duration(0), validity)
}

func TestNewR2StorageRejectsPartialConfig(t *testing.T) {
	_, err := NewR2Storage(context.Background(), R2Config{Bucket: "media"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "R2_ENDPOINT")
}
