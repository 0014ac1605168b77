package download

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderUnknownScheme(t *testing.T) {
	config, err := url.Parse("carrierpigeon://somewhere")
	require.NoError(t, err)

	_, err = NewProvider(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewCobaltConfig(t *testing.T) {
	t.Run("defaults to https", func(t *testing.T) {
		config, err := url.Parse("cobalt://api.cobalt.example")
		require.NoError(t, err)

		c, err := NewCobalt(config)
		require.NoError(t, err)
		assert.Equal(t, "https://api.cobalt.example", c.Endpoint)
		assert.Empty(t, c.APIKey)
	})

	t.Run("insecure flag and api key", func(t *testing.T) {
		config, err := url.Parse("cobalt://localhost:9000?insecure&key=sekrit")
		require.NoError(t, err)

		c, err := NewCobalt(config)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9000", c.Endpoint)
		assert.Equal(t, "sekrit", c.APIKey)
	})
}

func TestNewFastDLConfig(t *testing.T) {
	config, err := url.Parse("fastdl://localhost:8080")
	require.NoError(t, err)

	fdl, err := NewFastDL(config)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", fdl.Endpoint)
}

func TestNewSsvidConfig(t *testing.T) {
	t.Run("bare scheme uses the public site", func(t *testing.T) {
		config, err := url.Parse("ssvid:")
		require.NoError(t, err)

		s, err := NewSsvid(config)
		require.NoError(t, err)
		assert.Equal(t, "https://www.ssvid.net", s.Endpoint)
	})

	t.Run("mirror host", func(t *testing.T) {
		config, err := url.Parse("ssvid://mirror.example")
		require.NoError(t, err)

		s, err := NewSsvid(config)
		require.NoError(t, err)
		assert.Equal(t, "https://mirror.example", s.Endpoint)
	})
}

func TestNewWebDAVStorageConfig(t *testing.T) {
	t.Run("requires a public base", func(t *testing.T) {
		config, err := url.Parse("rclone+webdav://localhost:8080/media")
		require.NoError(t, err)

		_, err = NewWebDAVStorage(context.Background(), config)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base=")
	})

	t.Run("builds non expiring public links", func(t *testing.T) {
		config, err := url.Parse("rclone+webdav://localhost:8080/media?base=https://cdn.example")
		require.NoError(t, err)

		st, err := NewWebDAVStorage(context.Background(), config)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/media", st.baseURL)

		link, validity, err := st.SignedURL(context.Background(), ObjectRef{Key: "instagram/Cxyz123/clip.mp4.zip"}, 0)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example/instagram/Cxyz123/clip.mp4.zip", link)
		assert.Equal(t, time.Duration(0), validity)
	})
}

func TestNewStorageUnknownScheme(t *testing.T) {
	config, err := url.Parse("carrierpigeon://somewhere")
	require.NoError(t, err)

	_, err = NewStorage(context.Background(), config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage")
}

func TestClassifyCobaltError(t *testing.T) {
	mk := func(code string) CobaltError {
		var ce CobaltError
		ce.Status = "error"
		ce.Err.Code = code
		return ce
	}

	assert.True(t, IsKind(classifyCobaltError(mk("error.api.link.invalid")), KindInvalidURL))
	assert.True(t, IsKind(classifyCobaltError(mk("error.api.content.post.unavailable")), KindNotFound))
	assert.True(t, IsKind(classifyCobaltError(mk("error.api.service.unsupported")), KindUnsupported))
	assert.True(t, IsKind(classifyCobaltError(mk("error.api.generic.fail")), KindProviderError))
}
