package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

var _ Storage = (*FSStorage)(nil)

// FSStorage keeps uploads on local disk, mainly for development. Configured
// as fs://dir/path?base=http://host:port with an optional server=ADDR query
// param that spins up a file server over the directory. Links never expire.
type FSStorage struct {
	root   *os.Root
	base   string
	server *http.Server
}

func NewFSStorage(ctx context.Context, config *url.URL) (*FSStorage, error) {
	dir := config.Host + config.Path
	query := config.Query()
	st := FSStorage{base: query.Get("base")}
	var err error

	if st.base == "" {
		return nil, fmt.Errorf("fs storage needs a base= query param to build links")
	}

	st.root, err = os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("opening root: %w", err)
	}

	serverAddr := query.Get("server")
	if serverAddr != "" {
		err = st.startServer(serverAddr)
		if err != nil {
			return nil, fmt.Errorf("starting server: %w", err)
		}
	}

	return &st, nil
}

func (st *FSStorage) startServer(addr string) error {
	st.server = &http.Server{
		Addr:    addr,
		Handler: fileHeaders(http.FileServer(http.Dir(st.root.Name()))),

		ReadHeaderTimeout:            5 * time.Second,
		DisableGeneralOptionsHandler: true,
	}

	errChan := make(chan error, 1)
	go func() {
		err := st.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// grace period to catch an address that cannot be listened on
	select {
	case err := <-errChan:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (st *FSStorage) String() string {
	addr := "none"
	if st.server != nil {
		addr = st.server.Addr
	}
	return fmt.Sprintf("filesystem storage at %s server=%s", st.root.Name(), addr)
}

func (st *FSStorage) Close() error {
	var err error

	if st.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := st.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
		}
	}

	if closeErr := st.root.Close(); closeErr != nil {
		if err != nil {
			return fmt.Errorf("multiple errors: server shutdown: %v, root close: %v", err, closeErr)
		}
		err = closeErr
	}

	return err
}

func (st *FSStorage) Upload(ctx context.Context, key string, artifact *Artifact) (ObjectRef, error) {
	if err := validateObjectKey(key); err != nil {
		return ObjectRef{}, err
	}

	if dir := path.Dir(key); dir != "." {
		if err := st.root.MkdirAll(dir, os.FileMode(0755)); err != nil {
			return ObjectRef{}, Wrapf(KindStorageUnavailable, err, "creating directories")
		}
	}

	if err := st.root.WriteFile(key, artifact.Content, os.FileMode(0644)); err != nil {
		return ObjectRef{}, Wrapf(KindStorageUnavailable, err, "writing file")
	}

	return ObjectRef{Bucket: st.root.Name(), Key: key}, nil
}

func (st *FSStorage) SignedURL(ctx context.Context, ref ObjectRef, ttl time.Duration) (string, time.Duration, error) {
	return urlCat(st.base, ref.Key), 0, nil
}

func fileHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		if req.Method != "GET" && req.Method != "HEAD" {
			res.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// prevent directory listings
		if req.URL.Path != "/" && strings.HasSuffix(req.URL.Path, "/") {
			http.NotFound(res, req)
			return
		}

		if strings.HasSuffix(req.URL.Path, ".zip") {
			res.Header().Set("Content-Type", "application/zip")
			res.Header().Set("Cache-Control", "public, max-age=31536000")
		} else {
			res.Header().Set("Cache-Control", "public, max-age=3600")
		}

		next.ServeHTTP(res, req)
	})
}
