package translog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// BigQueryConfig holds configuration for a BigQuery transition table.
type BigQueryConfig struct {
	DatasetID       string
	TableID         string
	CredentialsFile string // Optional: Path to a service account JSON file.
}

// NewProductionBigQueryClient creates a BigQuery client suitable for production environments.
func NewProductionBigQueryClient(ctx context.Context, projectID string, credentialsFile string, logger zerolog.Logger) (*bigquery.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
		logger.Info().Str("credentials_file", credentialsFile).Msg("Using specified credentials file for BigQuery client.")
	} else {
		logger.Info().Msg("Using Application Default Credentials (ADC) for BigQuery client.")
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to create BigQuery client.")
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	logger.Info().Str("project_id", projectID).Msg("BigQuery client created successfully.")
	return client, nil
}

// BigQueryInserter implements TransitionSink for Google BigQuery, streaming
// presence transitions into a table for later analysis.
type BigQueryInserter struct {
	client   *bigquery.Client
	table    *bigquery.Table
	inserter *bigquery.Inserter
	logger   zerolog.Logger
}

// NewBigQueryInserter creates a new inserter for the configured table.
//
// The provided context is used for initial API calls to verify and
// potentially create the target table. If the table does not exist, it is
// created with a schema inferred from the Transition type, so deployment
// needs no manual table setup.
func NewBigQueryInserter(
	ctx context.Context,
	client *bigquery.Client,
	cfg *BigQueryConfig,
	logger zerolog.Logger,
) (*BigQueryInserter, error) {
	if client == nil {
		return nil, errors.New("bigquery client cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("BigQueryConfig cannot be nil")
	}

	projectID := client.Project()
	logger = logger.With().Str("project_id", projectID).Str("dataset_id", cfg.DatasetID).Str("table_id", cfg.TableID).Logger()

	tableRef := client.Dataset(cfg.DatasetID).Table(cfg.TableID)
	_, err := tableRef.Metadata(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "notFound") {
			logger.Warn().Msg("BigQuery table not found. Attempting to create with inferred schema.")
			inferredSchema, inferErr := bigquery.InferSchema(Transition{})
			if inferErr != nil {
				return nil, fmt.Errorf("failed to infer transition schema: %w", inferErr)
			}
			tableMetadata := &bigquery.TableMetadata{Schema: inferredSchema}
			if createErr := tableRef.Create(ctx, tableMetadata); createErr != nil {
				return nil, fmt.Errorf("failed to create BigQuery table %s.%s: %w", cfg.DatasetID, cfg.TableID, createErr)
			}
			logger.Info().Msg("BigQuery table created successfully.")
		} else {
			return nil, fmt.Errorf("failed to get BigQuery table metadata: %w", err)
		}
	} else {
		logger.Info().Msg("Successfully connected to existing BigQuery table.")
	}

	return &BigQueryInserter{
		client:   client,
		table:    tableRef,
		inserter: tableRef.Inserter(),
		logger:   logger,
	}, nil
}

// InsertBatch streams a batch of transitions to the configured table.
//
// Row-level insertion errors are logged individually, which is crucial for
// debugging data quality issues; if any row fails, the method returns an
// error wrapping the bigquery.PutMultiError.
func (i *BigQueryInserter) InsertBatch(ctx context.Context, items []*Transition) error {
	if len(items) == 0 {
		i.logger.Info().Msg("InsertBatch called with an empty slice, nothing to do.")
		return nil
	}

	err := i.inserter.Put(ctx, items)
	if err != nil {
		i.logger.Error().Err(err).Int("batch_size", len(items)).Msg("Failed to insert transitions into BigQuery.")
		var multiErr bigquery.PutMultiError
		if errors.As(err, &multiErr) {
			for _, rowErr := range multiErr {
				i.logger.Error().
					Int("row_index", rowErr.RowIndex).
					Msgf("BigQuery insert error for row: %v", rowErr.Errors)
			}
		}
		return fmt.Errorf("bigquery Inserter.Put failed: %w", err)
	}

	i.logger.Debug().Int("batch_size", len(items)).Msg("Successfully inserted transition batch into BigQuery.")
	return nil
}

// Close is a no-op for this implementation, as the underlying BigQuery
// client's lifecycle is managed externally by the service that created it.
func (i *BigQueryInserter) Close() error {
	i.logger.Info().Msg("BigQueryInserter.Close() called; client lifecycle is managed externally.")
	return nil
}
