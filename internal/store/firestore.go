// Package store persists validated resume documents. The parsing core
// never touches it mid-pipeline; it is called once per run, after
// validation succeeds.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/resumedocumentflow/internal/models"
)

// ErrNotFound reports a lookup for a user with no stored resume.
var ErrNotFound = errors.New("resume not found")

// Record is the persisted form of a validated resume.
type Record struct {
	UserID    string        `firestore:"userId"`
	Resume    models.Resume `firestore:"resume"`
	FileHash  string        `firestore:"fileHash,omitempty"`
	CreatedAt time.Time     `firestore:"createdAt"`
	UpdatedAt time.Time     `firestore:"updatedAt"`
}

// Resumes is the document store keyed by the owning user identity. The
// identity is opaque here; authorization happened upstream.
type Resumes struct {
	client     *firestore.Client
	collection string
}

func NewResumes(client *firestore.Client, collection string) *Resumes {
	return &Resumes{client: client, collection: collection}
}

// Save upserts the resume for a user, preserving the original creation
// time across re-parses.
func (s *Resumes) Save(ctx context.Context, userID string, resume *models.Resume, fileHash string) (*Record, error) {
	ref := s.client.Collection(s.collection).Doc(userID)
	now := time.Now().UTC()
	rec := Record{
		UserID:    userID,
		Resume:    *resume,
		FileHash:  fileHash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if snap, err := ref.Get(ctx); err == nil {
		var prev Record
		if err := snap.DataTo(&prev); err == nil && !prev.CreatedAt.IsZero() {
			rec.CreatedAt = prev.CreatedAt
		}
	}

	if _, err := ref.Set(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving resume for user %s: %w", userID, err)
	}
	return &rec, nil
}

func (s *Resumes) Get(ctx context.Context, userID string) (*Record, error) {
	snap, err := s.client.Collection(s.collection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading resume for user %s: %w", userID, err)
	}
	var rec Record
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decoding stored resume for user %s: %w", userID, err)
	}
	return &rec, nil
}

func (s *Resumes) Delete(ctx context.Context, userID string) error {
	// Firestore deletes are no-ops for missing documents; surface NotFound
	// explicitly so the API can answer 404.
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	if _, err := s.client.Collection(s.collection).Doc(userID).Delete(ctx); err != nil {
		return fmt.Errorf("deleting resume for user %s: %w", userID, err)
	}
	return nil
}

// Ping verifies the store is reachable, for the readiness probe.
func (s *Resumes) Ping(ctx context.Context) error {
	_, err := s.client.Collection(s.collection).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}
