package source

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreSource is a record source backed by a Firestore collection.
// It is suitable for smaller deployments where a dedicated Redis instance
// may be overkill. The client's lifecycle is managed externally.
type FirestoreSource[V any] struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreSource creates a new FirestoreSource over one collection.
func NewFirestoreSource[V any](client *firestore.Client, collectionName string) (*FirestoreSource[V], error) {
	if client == nil {
		return nil, errors.New("firestore client cannot be nil")
	}
	if collectionName == "" {
		return nil, errors.New("collection name cannot be empty")
	}
	return &FirestoreSource[V]{
		client:     client,
		collection: collectionName,
	}, nil
}

// Fetch retrieves a document and maps it to the value type. A NotFound
// status is an authoritative miss, not an error.
func (s *FirestoreSource[V]) Fetch(ctx context.Context, key string) (V, bool, error) {
	var zero V
	docSnap, err := s.client.Collection(s.collection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("firestore get failed for key %s: %w", key, err)
	}
	var value V
	if err := docSnap.DataTo(&value); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal record data for key %s: %w", key, err)
	}
	return value, true, nil
}

// Put creates or overwrites a document.
func (s *FirestoreSource[V]) Put(ctx context.Context, key string, value V) error {
	_, err := s.client.Collection(s.collection).Doc(key).Set(ctx, value)
	if err != nil {
		return fmt.Errorf("failed to set record in firestore for key %s: %w", key, err)
	}
	return nil
}

// Delete removes the document from Firestore.
func (s *FirestoreSource[V]) Delete(ctx context.Context, key string) error {
	_, err := s.client.Collection(s.collection).Doc(key).Delete(ctx)
	if err != nil {
		// It's often acceptable to ignore "not found" errors on delete.
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("firestore delete failed for key %s: %w", key, err)
	}
	return nil
}

// Close is a no-op as the Firestore client's lifecycle is managed externally.
func (s *FirestoreSource[V]) Close() error {
	return nil
}
