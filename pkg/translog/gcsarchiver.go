package translog

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GCSArchiverConfig holds configuration specific to the GCS archiver.
type GCSArchiverConfig struct {
	BucketName   string
	ObjectPrefix string
}

// GCSArchiver implements TransitionSink for Google Cloud Storage. It groups
// transitions by their batch key (day and record key) and uploads each group
// as a gzip-compressed JSONL object.
type GCSArchiver struct {
	client GCSClient
	config GCSArchiverConfig
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewGCSArchiver creates a new archiver configured for Google Cloud Storage.
func NewGCSArchiver(
	gcsClient GCSClient,
	config GCSArchiverConfig,
	logger zerolog.Logger,
) (*GCSArchiver, error) {
	if gcsClient == nil {
		return nil, errors.New("GCS client cannot be nil")
	}
	if config.BucketName == "" {
		return nil, errors.New("GCS bucket name is required")
	}
	return &GCSArchiver{
		client: gcsClient,
		config: config,
		logger: logger.With().Str("component", "GCSArchiver").Logger(),
	}, nil
}

// InsertBatch groups a batch of transitions by their batch key and uploads
// each group to a separate, compressed GCS object in parallel.
func (u *GCSArchiver) InsertBatch(ctx context.Context, items []*Transition) error {
	if len(items) == 0 {
		return nil
	}

	groupedBatches := make(map[string][]*Transition)
	for _, item := range items {
		if item != nil {
			groupedBatches[item.GetBatchKey()] = append(groupedBatches[item.GetBatchKey()], item)
		}
	}

	var uploadWg sync.WaitGroup
	errs := make(chan error, len(groupedBatches))

	for key, batchData := range groupedBatches {
		uploadWg.Add(1)
		u.wg.Add(1) // Add to the main waitgroup for the Close method.

		go func(batchKey string, dataToUpload []*Transition) {
			defer uploadWg.Done()
			defer u.wg.Done()
			if err := u.uploadSingleGroup(ctx, batchKey, dataToUpload); err != nil {
				errs <- err
			}
		}(key, batchData)
	}

	uploadWg.Wait()
	close(errs)

	var combinedErr error
	for err := range errs {
		if combinedErr == nil {
			combinedErr = err
		} else {
			combinedErr = fmt.Errorf("%v; %w", combinedErr, err)
		}
	}
	return combinedErr
}

// uploadSingleGroup handles writing one group of transitions to a GCS object.
func (u *GCSArchiver) uploadSingleGroup(ctx context.Context, batchKey string, batchData []*Transition) error {
	batchFileID := uuid.New().String()
	objectName := path.Join(u.config.ObjectPrefix, batchKey, fmt.Sprintf("%s.jsonl.gz", batchFileID))
	u.logger.Info().Str("object_name", objectName).Int("record_count", len(batchData)).Msg("Starting upload for grouped transition batch.")

	objHandle := u.client.Bucket(u.config.BucketName).Object(objectName)
	gcsWriter := objHandle.NewWriter(ctx)
	pr, pw := io.Pipe()

	// This goroutine encodes and compresses the data, writing it to a pipe.
	go func() {
		var err error
		defer func() { _ = pw.CloseWithError(err) }()
		gz := gzip.NewWriter(pw)
		defer func() {
			if closeErr := gz.Close(); err == nil {
				err = closeErr
			}
		}()
		enc := json.NewEncoder(gz)
		for _, rec := range batchData {
			if err = enc.Encode(rec); err != nil {
				return
			}
		}
	}()

	if _, err := io.Copy(gcsWriter, pr); err != nil {
		_ = gcsWriter.Close()
		return fmt.Errorf("failed to copy transition data to GCS object %s: %w", objectName, err)
	}
	if err := gcsWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS object %s: %w", objectName, err)
	}

	u.logger.Info().Str("object_name", objectName).Msg("Successfully uploaded transition batch.")
	return nil
}

// Close waits for any in-flight uploads to finish.
func (u *GCSArchiver) Close() error {
	u.logger.Info().Msg("Waiting for in-flight GCS uploads to complete...")
	u.wg.Wait()
	u.logger.Info().Msg("GCSArchiver closed.")
	return nil
}
