package notify

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
)

// maxArtworkBytes caps a single artwork download.
const maxArtworkBytes = 10 << 20

// DefaultArtworkTimeout bounds one artwork download.
const DefaultArtworkTimeout = 3 * time.Second

// Artwork keeps local copies of remote track artwork. Notification servers
// only read local files, so remote art must be downloaded before it can be
// shown.
type Artwork struct {
	dir    string
	client *http.Client

	mu sync.Mutex // one download at a time
}

// NewArtwork creates a cache rooted at dir. An empty dir uses
// DefaultArtworkDir.
func NewArtwork(dir string, timeout time.Duration) *Artwork {
	if dir == "" {
		dir = DefaultArtworkDir()
	}
	if timeout <= 0 {
		timeout = DefaultArtworkTimeout
	}
	return &Artwork{dir: dir, client: &http.Client{Timeout: timeout}}
}

// DefaultArtworkDir returns $XDG_CACHE_HOME/soundshow/artwork.
func DefaultArtworkDir() string {
	return filepath.Join(xdg.CacheHome, AppName, "artwork")
}

// Path returns a local file holding the artwork at rawURL, downloading it on
// first use. file:// URLs resolve to their path without a copy. An empty URL
// returns "".
func (a *Artwork) Path(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("artwork url: %w", err)
	}
	switch u.Scheme {
	case "file":
		return u.Path, nil
	case "http", "https":
	default:
		return "", fmt.Errorf("artwork url %q: unsupported scheme", rawURL)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	dst := filepath.Join(a.dir, cacheName(u))
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}
	if err := a.download(ctx, rawURL, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (a *Artwork) download(ctx context.Context, rawURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch artwork: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch artwork %s: %s", rawURL, resp.Status)
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(a.dir, ".artwork-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxArtworkBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("save artwork: %w", err)
	}
	if n > maxArtworkBytes {
		return errors.New("artwork larger than 10 MiB")
	}
	return os.Rename(tmp.Name(), dst)
}

// cacheName derives a stable file name from the URL, keeping an image
// extension when the URL has one.
func cacheName(u *url.URL) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(u.String()))
	name := strconv.FormatUint(h.Sum64(), 16)

	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return name + ext
	default:
		return name
	}
}
