package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/resumedocumentflow/internal/gcp"
)

// Archive keeps original uploads in GCS, keyed by owner and content hash
// so re-uploads of the same file are no-ops.
type Archive struct {
	client *storage.Client
	bucket string
}

func NewArchive(client *storage.Client, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

// Put stores one upload and returns the object name.
func (a *Archive) Put(ctx context.Context, userID string, pdf []byte) (string, error) {
	objectName := fmt.Sprintf("%s/%s.pdf", userID, ContentHash(pdf))
	bucketHandle := a.client.Bucket(a.bucket)
	if err := gcp.SaveToGCSAtomically(ctx, bucketHandle, objectName, pdf); err != nil {
		return "", fmt.Errorf("archiving upload for user %s: %w", userID, err)
	}
	return objectName, nil
}

// ContentHash is the hex SHA-256 of the upload, used for archive naming
// and stored with the resume for traceability.
func ContentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
