package download

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls    int
	artifact *Artifact
	errs     []error
}

func (p *stubProvider) Fetch(ctx context.Context, mediaURL string) (*Artifact, error) {
	p.calls++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if p.artifact != nil {
		return p.artifact, nil
	}
	return &Artifact{Name: "clip_Cxyz123.mp4", ContentType: "video/mp4", Content: []byte("fake video bytes")}, nil
}

type stubStorage struct {
	uploads   int
	signs     int
	lastKey   string
	uploadErr error
	validity  *time.Duration
}

func (s *stubStorage) Upload(ctx context.Context, key string, artifact *Artifact) (ObjectRef, error) {
	s.uploads++
	s.lastKey = key
	if s.uploadErr != nil {
		return ObjectRef{}, s.uploadErr
	}
	return ObjectRef{Bucket: "test-bucket", Key: key}, nil
}

func (s *stubStorage) SignedURL(ctx context.Context, ref ObjectRef, ttl time.Duration) (string, time.Duration, error) {
	s.signs++
	if s.validity != nil {
		return "https://cdn.example/" + ref.Key, *s.validity, nil
	}
	return "https://signed.example/" + ref.Key, ttl, nil
}

func (s *stubStorage) Close() error { return nil }

func (s *stubStorage) String() string { return "stub storage" }

const testPostURL = "https://www.instagram.com/p/Cxyz123/"

func TestDeliverDirect(t *testing.T) {
	provider := &stubProvider{}
	storage := &stubStorage{}
	r := &Resolver{Provider: provider, Storage: storage}

	result, err := r.Deliver(context.Background(), Request{URL: testPostURL, Mode: ModeDirect})
	require.NoError(t, err)

	require.Equal(t, ModeDirect, result.Mode)
	require.NotNil(t, result.Artifact)
	assert.Equal(t, "clip_Cxyz123.mp4", result.Artifact.Name)
	assert.Equal(t, "video/mp4", result.Artifact.ContentType)
	assert.Nil(t, result.Link)

	// direct delivery never touches storage
	assert.Equal(t, 0, storage.uploads)
	assert.Equal(t, 0, storage.signs)
}

func TestDeliverInvalidURL(t *testing.T) {
	provider := &stubProvider{}
	storage := &stubStorage{}
	r := &Resolver{Provider: provider, Storage: storage}

	_, err := r.Deliver(context.Background(), Request{URL: "https://youtube.com/watch?v=abc", Mode: ModeLink})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidURL))

	// rejected before any provider or storage work
	assert.Equal(t, 0, provider.calls)
	assert.Equal(t, 0, storage.uploads)
}

func TestDeliverUnsupportedPath(t *testing.T) {
	provider := &stubProvider{}
	r := &Resolver{Provider: provider}

	_, err := r.Deliver(context.Background(), Request{URL: "https://www.instagram.com/someprofile/", Mode: ModeDirect})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnsupported))
	assert.Equal(t, 0, provider.calls)
}

func TestDeliverLink(t *testing.T) {
	provider := &stubProvider{}
	storage := &stubStorage{}
	r := &Resolver{
		Provider: provider,
		Storage:  storage,
		Opts:     Options{SignedURLTTL: 3600 * time.Second},
	}

	result, err := r.Deliver(context.Background(), Request{URL: testPostURL, Mode: ModeLink})
	require.NoError(t, err)

	require.Equal(t, ModeLink, result.Mode)
	require.NotNil(t, result.Link)
	assert.Nil(t, result.Artifact)

	assert.Equal(t, "instagram/Cxyz123/clip_Cxyz123.mp4.zip", storage.lastKey)
	assert.Equal(t, "https://signed.example/instagram/Cxyz123/clip_Cxyz123.mp4.zip", result.Link.URL)
	assert.Equal(t, "clip_Cxyz123.mp4.zip", result.Link.Filename)
	assert.Equal(t, 3600, result.Link.ExpiresIn)

	assert.Equal(t, 1, storage.uploads)
	assert.Equal(t, 1, storage.signs)
}

func TestDeliverLinkIdempotentKey(t *testing.T) {
	storage := &stubStorage{}
	r := &Resolver{Provider: &stubProvider{}, Storage: storage, Opts: Options{SignedURLTTL: time.Hour}}

	_, err := r.Deliver(context.Background(), Request{URL: testPostURL, Mode: ModeLink})
	require.NoError(t, err)
	first := storage.lastKey

	// same post with tracking junk attached lands on the same object
	_, err = r.Deliver(context.Background(), Request{URL: testPostURL + "?igsh=tracking", Mode: ModeLink})
	require.NoError(t, err)

	assert.Equal(t, first, storage.lastKey)
	assert.Equal(t, 2, storage.uploads)
}

func TestDeliverLinkStorageUnconfigured(t *testing.T) {
	provider := &stubProvider{}
	r := &Resolver{Provider: provider, Storage: nil}

	_, err := r.Deliver(context.Background(), Request{URL: testPostURL, Mode: ModeLink})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStorageUnconfigured))

	// extraction runs before the storage check, so the provider was used
	assert.Equal(t, 1, provider.calls)
}

func TestDeliverDirectWithoutStorage(t *testing.T) {
	r := &Resolver{Provider: &stubProvider{}, Storage: nil}

	result, err := r.Deliver(context.Background(), Request{URL: testPostURL, Mode: ModeDirect})
	require.NoError(t, err)
	assert.NotNil(t, result.Artifact)
}

func TestDeliverRetriesTransientProviderError(t *testing.T) {
	provider := &stubProvider{errs: []error{Errf(KindProviderError, "flaky upstream")}}
	r := &Resolver{Provider: provider}

	result, err := r.Deliver(context.Background(), Request{URL: testPostURL, Mode: ModeDirect})
	require.NoError(t, err)
	assert.NotNil(t, result.Artifact)
	assert.Equal(t, 2, provider.calls)
}

func TestDeliverDoesNotRetryNotFound(t *testing.T) {
	provider := &stubProvider{errs: []error{Errf(KindNotFound, "media not found")}}
	r := &Resolver{Provider: provider}

	_, err := r.Deliver(context.Background(), Request{URL: testPostURL, Mode: ModeDirect})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
	assert.Equal(t, 1, provider.calls)
}

func TestDeliverDoesNotRetryCanceledContext(t *testing.T) {
	provider := &stubProvider{errs: []error{
		Errf(KindProviderError, "flaky upstream"),
		Errf(KindProviderError, "flaky again"),
	}}
	r := &Resolver{Provider: provider}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Deliver(ctx, Request{URL: testPostURL, Mode: ModeDirect})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindProviderError))

	// a dead context never earns a second attempt
	assert.Equal(t, 1, provider.calls)
}

func TestDeliverSurfacesUploadFailure(t *testing.T) {
	storage := &stubStorage{uploadErr: Errf(KindStorageUnavailable, "uploading to r2")}
	r := &Resolver{Provider: &stubProvider{}, Storage: storage, Opts: Options{SignedURLTTL: time.Hour}}

	_, err := r.Deliver(context.Background(), Request{URL: testPostURL, Mode: ModeLink})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStorageUnavailable))
	assert.Equal(t, 0, storage.signs)
}

func TestDeliverLinkNonExpiring(t *testing.T) {
	validity := time.Duration(0)
	storage := &stubStorage{validity: &validity}
	r := &Resolver{Provider: &stubProvider{}, Storage: storage, Opts: Options{SignedURLTTL: time.Hour}}

	result, err := r.Deliver(context.Background(), Request{URL: testPostURL, Mode: ModeLink})
	require.NoError(t, err)

	// stable public links report no expiry
	assert.Equal(t, 0, result.Link.ExpiresIn)
	assert.Contains(t, result.Link.URL, "cdn.example")
}

func TestParseMode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Mode
	}{
		{"", ModeDirect},
		{"direct", ModeDirect},
		{"DIRECT", ModeDirect},
		{"link", ModeLink},
		{" link ", ModeLink},
		{"Link", ModeLink},
	} {
		got, err := ParseMode(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseMode("zip")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadRequest))
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "instagram/Cxyz123/clip.mp4.zip", objectKey("Cxyz123", "clip.mp4.zip"))
}

func TestValidateObjectKey(t *testing.T) {
	assert.NoError(t, validateObjectKey("instagram/Cxyz123/clip.mp4.zip"))
	assert.Error(t, validateObjectKey(""))
	assert.Error(t, validateObjectKey("/leading/slash.zip"))
	assert.Error(t, validateObjectKey("instagram/../escape.zip"))
	assert.Error(t, validateObjectKey("instagram//double.zip"))
}

func TestFetchSharesDeadlineAcrossRetry(t *testing.T) {
	provider := &stubProvider{errs: []error{Errf(KindProviderError, "flaky"), Errf(KindProviderError, "flaky again")}}
	r := &Resolver{Provider: provider, Opts: Options{ExtractTimeout: 50 * time.Millisecond}}

	_, err := r.Deliver(context.Background(), Request{URL: testPostURL, Mode: ModeDirect})
	require.Error(t, err)

	// one retry at most, even though both attempts failed fast
	assert.Equal(t, 2, provider.calls)
	assert.True(t, IsKind(err, KindProviderError))
}
