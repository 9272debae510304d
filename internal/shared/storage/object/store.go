package object

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/google/uuid"

	"fitflow-backend/internal/shared/util"
)

// Object describes a stored blob.
type Object struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Store saves and retrieves binary objects such as progress photos.
type Store interface {
	Save(ctx context.Context, owner string, fileName string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// NewKey builds an owner-scoped key with a random prefix: <hash(owner)>/<uuid>_<name>.
func NewKey(owner, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.HashUserKey(owner), uuid.NewString()+"_"+name), nil
}

// OwnerPrefix is the key prefix every object saved for owner starts with.
func OwnerPrefix(owner string) string {
	return util.HashUserKey(owner) + "/"
}

// Sniff detects the content type from the first 512 bytes and returns a reader
// that still yields the full stream.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var head [512]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	return http.DetectContentType(head[:n]), io.MultiReader(bytes.NewReader(head[:n]), r), nil
}
