package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

const (
	// DefaultHTTPTimeout bounds a single URL download.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultUserAgent is sent with every URL download.
	DefaultUserAgent = "skyscope-mcp/1.0"

	// DefaultMaxBytes caps the size of a downloaded image.
	DefaultMaxBytes = 64 << 20
)

// LoaderConfig configures a Loader. Zero values select the defaults.
type LoaderConfig struct {
	HTTPTimeout time.Duration
	UserAgent   string
	MaxBytes    int64
}

// Loader reads images from local paths and http(s) URLs.
//
// PNG, JPEG, GIF and WebP are supported. WebP goes through the registered
// x/image decoder first, with an explicit libwebp decode as fallback.
type Loader struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewLoader creates a Loader from cfg.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Loader{
		client:    &http.Client{Timeout: cfg.HTTPTimeout},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
	}
}

// IsURL reports whether source should be fetched over HTTP.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load decodes the image identified by source, a file path or an http(s) URL.
func (l *Loader) Load(ctx context.Context, source string) (image.Image, error) {
	if source == "" {
		return nil, fmt.Errorf("empty image source")
	}
	if IsURL(source) {
		return l.loadURL(ctx, source)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.loadFile(source)
}

func (l *Loader) loadFile(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	img, err := decodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func (l *Loader) loadURL(ctx context.Context, source string) (image.Image, error) {
	if _, err := url.Parse(source); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", l.maxBytes)
	}

	img, err := decodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func decodeBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("unknown or unsupported image format")
}

// ImageCache provides thread-safe caching of loaded images to avoid redundant
// reads and downloads.
//
// Images are keyed by the exact source string. Cached images remain in memory
// until removed with Evict or Clear.
type ImageCache struct {
	loader *Loader

	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates an empty cache backed by a default Loader.
func NewImageCache() *ImageCache {
	return NewImageCacheWithLoader(NewLoader(LoaderConfig{}))
}

// NewImageCacheWithLoader creates an empty cache backed by loader.
func NewImageCacheWithLoader(loader *Loader) *ImageCache {
	return &ImageCache{
		loader: loader,
		images: make(map[string]image.Image),
	}
}

// Load returns the cached image for source, loading it on a miss.
func (c *ImageCache) Load(ctx context.Context, source string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[source]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := c.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[source] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes one source from the cache. Unknown sources are ignored.
func (c *ImageCache) Evict(source string) {
	c.mu.Lock()
	delete(c.images, source)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about a loaded image.
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is "png", "jpeg", "gif", "webp", or "unknown", detected from
	// the source's extension.
	Format string `json:"format"`

	// ColorDepth is "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the on-disk size; 0 for URL sources.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads source through cache and describes it.
func LoadImageInfo(ctx context.Context, cache *ImageCache, source string) (*ImageInfo, error) {
	img, err := cache.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	info := DescribeImage(img, source)
	if !IsURL(source) {
		stat, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		info.FileSizeBytes = stat.Size()
	}
	return info, nil
}

// DescribeImage reports dimensions, format, depth and alpha for an already
// decoded image. FileSizeBytes is left zero.
func DescribeImage(img image.Image, source string) *ImageInfo {
	bounds := img.Bounds()

	ext := strings.ToLower(filepath.Ext(source))
	if IsURL(source) {
		if u, err := url.Parse(source); err == nil {
			ext = strings.ToLower(filepath.Ext(u.Path))
		}
	}
	format := "unknown"
	switch ext {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".webp":
		format = "webp"
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	return &ImageInfo{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     format,
		ColorDepth: colorDepth,
		HasAlpha:   hasAlpha,
	}
}
