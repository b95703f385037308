package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/coolbeans/hukum/pkg/schedule"
)

// DefaultCollection is the Firestore collection snapshots are written to.
const DefaultCollection = "hukum_runs"

// snapshotRecord is the Firestore document. The snapshot travels as a JSON
// string because section payloads only have a JSON mapping.
type snapshotRecord struct {
	RunID      string    `firestore:"run_id"`
	DocumentID string    `firestore:"document_id"`
	Spent      float64   `firestore:"spent"`
	Limit      float64   `firestore:"limit"`
	UpdatedAt  time.Time `firestore:"updated_at"`
	Snapshot   string    `firestore:"snapshot"`
}

// FirestoreStore keeps snapshots in a Firestore collection, one document per
// statute.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore connects to Firestore. credentialsFile may be empty to
// use application default credentials.
func NewFirestoreStore(ctx context.Context, projectID, collection, credentialsFile string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project ID is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

// Save writes the snapshot under its document ID.
func (fs *FirestoreStore) Save(ctx context.Context, snapshot *schedule.Snapshot) error {
	record, err := encodeRecord(snapshot)
	if err != nil {
		return err
	}
	if _, err := fs.client.Collection(fs.collection).Doc(snapshot.DocumentID).Set(ctx, record); err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", snapshot.DocumentID, err)
	}
	return nil
}

// Load reads the snapshot for documentID.
func (fs *FirestoreStore) Load(ctx context.Context, documentID string) (*schedule.Snapshot, error) {
	if err := ValidateID(documentID); err != nil {
		return nil, err
	}
	doc, err := fs.client.Collection(fs.collection).Doc(documentID).Get(ctx)
	if err != nil {
		return nil, notFound(documentID, err)
	}

	var record snapshotRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot record %s: %w", documentID, err)
	}
	return decodeRecord(record)
}

// Close releases the Firestore client.
func (fs *FirestoreStore) Close() error {
	return fs.client.Close()
}

func encodeRecord(snapshot *schedule.Snapshot) (snapshotRecord, error) {
	if err := ValidateID(snapshot.DocumentID); err != nil {
		return snapshotRecord{}, err
	}
	snapshot.UpdatedAt = time.Now()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return snapshotRecord{}, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return snapshotRecord{
		RunID:      snapshot.RunID,
		DocumentID: snapshot.DocumentID,
		Spent:      snapshot.Spent,
		Limit:      snapshot.Limit,
		UpdatedAt:  snapshot.UpdatedAt,
		Snapshot:   string(data),
	}, nil
}

func decodeRecord(record snapshotRecord) (*schedule.Snapshot, error) {
	var snapshot schedule.Snapshot
	if err := json.Unmarshal([]byte(record.Snapshot), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", record.DocumentID, err)
	}
	return &snapshot, nil
}

// notFound maps a gRPC NotFound status to ErrNotFound.
func notFound(documentID string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	return fmt.Errorf("failed to get snapshot %s: %w", documentID, err)
}
