package local

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"fitflow-backend/internal/shared/storage/object"
)

func TestSaveAndOpen(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	obj, err := store.Save(ctx, "guest:g1", "front.png", bytes.NewReader(png))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if obj.ContentType != "image/png" {
		t.Fatalf("content type = %q", obj.ContentType)
	}
	if obj.Size != int64(len(png)) {
		t.Fatalf("size = %d, want %d", obj.Size, len(png))
	}
	if !strings.HasPrefix(obj.Key, object.OwnerPrefix("guest:g1")) || !strings.HasSuffix(obj.Key, "_front.png") {
		t.Fatalf("unexpected key %q", obj.Key)
	}

	rc, err := store.Open(ctx, obj.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, png) {
		t.Fatalf("round trip mismatch")
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}

func TestSaveRejectsBadName(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Save(context.Background(), "u", "../x.png", strings.NewReader("x")); err == nil {
		t.Fatalf("expected invalid file name")
	}
}

func TestDelete(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	obj, err := store.Save(ctx, "u", "side.png", bytes.NewReader([]byte("\x89PNG\r\n\x1a\n")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, obj.Key); err == nil {
		t.Fatalf("expected deleted object to be gone")
	}
	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if err := store.Delete(ctx, "../outside"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}
