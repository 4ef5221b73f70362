// Package blob uploads publication images to an object store speaking the
// Supabase storage REST API. Images are re-encoded as WebP before upload.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
)

// Config holds the object store settings.
type Config struct {
	BaseURL     string // e.g. https://xyz.supabase.co/storage/v1
	APIKey      string
	Bucket      string
	WebPQuality int
	Timeout     time.Duration
}

// Client uploads images to one bucket.
type Client struct {
	baseURL     string
	apiKey      string
	bucket      string
	webPQuality int
	http        *http.Client
	now         func() time.Time
}

// New creates a client from config. Returns nil if essential config is missing.
func New(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	quality := cfg.WebPQuality
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	bucket := strings.Trim(cfg.Bucket, "/")
	if bucket == "" {
		bucket = "images"
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		bucket:      bucket,
		webPQuality: quality,
		http:        &http.Client{Timeout: timeout},
		now:         time.Now,
	}
}

// EncodeWebP decodes a JPEG, PNG or GIF image and re-encodes it as WebP.
func EncodeWebP(r io.Reader, quality int) ([]byte, image.Rectangle, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("encode webp: %w", err)
	}
	slog.Debug("blob: image converted", "from", format, "bytes", buf.Len())
	return buf.Bytes(), img.Bounds(), nil
}

// UploadImage converts the image read from r to WebP, stores it under a
// fresh object path and returns its public URL. name is only logged.
func (c *Client) UploadImage(ctx context.Context, name string, r io.Reader) (string, error) {
	if c == nil {
		return "", errors.New("nil blob client")
	}
	start := time.Now()
	data, bounds, err := EncodeWebP(r, c.webPQuality)
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("%s/%s.webp", c.now().UTC().Format("2006/01/02"), uuid.NewString())

	url := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "image/webp")
	req.Header.Set("Cache-Control", "max-age=3600")
	req.Header.Set("x-upsert", "false")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload image failed: status=%d body=%s", resp.StatusCode, string(b))
	}
	public := fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, c.bucket, path)
	slog.Info("blob: image uploaded",
		"name", name,
		"width", bounds.Dx(),
		"height", bounds.Dy(),
		"bytes", len(data),
		"url", public,
		"duration", time.Since(start),
	)
	return public, nil
}
