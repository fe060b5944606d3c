package fs

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"trackcore/internal/blob/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	payload := []byte("oscilloscope calibration certificate")
	info, err := store.Put(ctx, "assets/a1/cert.pdf", bytes.NewReader(payload), core.PutOptions{
		ContentType: "application/pdf",
		Metadata:    map[string]string{"filename": "cert.pdf"},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), info.Size)
	}
	if info.ETag == "" {
		t.Fatalf("expected etag to be computed")
	}

	got, rc, err := store.Get(ctx, "assets/a1/cert.pdf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("payload mismatch: %q", data)
	}
	if got.ContentType != "application/pdf" || got.Metadata["filename"] != "cert.pdf" {
		t.Fatalf("metadata mismatch: %+v", got)
	}
}

func TestPutRejectsDuplicateKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "docs/one", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.Put(ctx, "docs/one", strings.NewReader("b"), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../outside", "a/../../b", "/absolute"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}

func TestHeadAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "docs/manual", strings.NewReader("content"), core.PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	info, err := store.Head(ctx, "docs/manual")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if info.Size != int64(len("content")) {
		t.Fatalf("unexpected head info: %+v", info)
	}
	deleted, err := store.Delete(ctx, "docs/manual")
	if err != nil || !deleted {
		t.Fatalf("Delete: deleted=%v err=%v", deleted, err)
	}
	if _, err := store.Head(ctx, "docs/manual"); err == nil {
		t.Fatalf("expected head to fail after delete")
	}
	deleted, err = store.Delete(ctx, "docs/manual")
	if err != nil || deleted {
		t.Fatalf("expected no-op delete, deleted=%v err=%v", deleted, err)
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, key := range []string{"assets/a1/one", "assets/a1/two", "assets/a2/other"} {
		if _, err := store.Put(ctx, key, strings.NewReader(key), core.PutOptions{}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "assets/a1/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 keys, got %+v", infos)
	}
	if infos[0].Key != "assets/a1/one" || infos[1].Key != "assets/a1/two" {
		t.Fatalf("expected sorted keys, got %+v", infos)
	}
}

func TestPresignURLOnlySupportsGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	url, err := store.PresignURL(ctx, "docs/manual", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("PresignURL: %v", err)
	}
	if !strings.Contains(url, "docs/manual") {
		t.Fatalf("unexpected url %s", url)
	}
	if _, err := store.PresignURL(ctx, "docs/manual", core.SignedURLOptions{Method: "PUT"}); err == nil {
		t.Fatalf("expected unsupported method error")
	}
}

func TestDriverIdentifier(t *testing.T) {
	store := newTestStore(t)
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}
