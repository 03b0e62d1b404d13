package inbox

import "errors"

// ErrMissingIngestionService is returned when no ingestion service is provided.
var ErrMissingIngestionService = errors.New("inbox: ingestion service is required")

// ErrMissingRoot is returned when no inbox directory is given.
var ErrMissingRoot = errors.New("inbox: root directory is required")
