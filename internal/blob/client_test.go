package blob

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		img.Set(x, 1, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestNewRequiresConfig(t *testing.T) {
	if c := New(Config{BaseURL: "http://x"}); c != nil {
		t.Fatal("expected nil client without api key")
	}
}

func TestEncodeWebP(t *testing.T) {
	data, bounds, err := EncodeWebP(bytes.NewReader(pngBytes(t)), 80)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if bounds.Dx() != 8 || bounds.Dy() != 4 {
		t.Fatalf("bounds = %v", bounds)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		t.Fatalf("not a webp payload: % x", data[:12])
	}
	if _, _, err := EncodeWebP(strings.NewReader("not an image"), 80); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestUploadImage(t *testing.T) {
	var gotPath, gotType, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"Key":"ok"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/", APIKey: "k", Bucket: "pubs"})
	c.now = func() time.Time { return time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC) }
	url, err := c.UploadImage(context.Background(), "cover.png", bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(gotPath, "/object/pubs/2024/02/03/") || !strings.HasSuffix(gotPath, ".webp") {
		t.Fatalf("path = %s", gotPath)
	}
	if gotType != "image/webp" || gotAuth != "Bearer k" || len(gotBody) == 0 {
		t.Fatalf("type=%q auth=%q body=%d", gotType, gotAuth, len(gotBody))
	}
	want := srv.URL + strings.Replace(gotPath, "/object/", "/object/public/", 1)
	if url != want {
		t.Fatalf("url = %s, want %s", url, want)
	}
}

func TestUploadImageStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL, APIKey: "k"})
	if _, err := c.UploadImage(context.Background(), "x.png", bytes.NewReader(pngBytes(t))); err == nil || !strings.Contains(err.Error(), "status=403") {
		t.Fatalf("err = %v", err)
	}
}
