package fixture

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"fahndungsportal/internal/model"
	"fahndungsportal/internal/typo3"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for local dataset files.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based dataset loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "fixture-loader").Logger(),
	}
}

// Load reads a dataset file. Files ending in .gz are decompressed first.
func (l *fileLoader) Load(ctx context.Context, filePath string) ([]model.FahndungItem, error) {
	l.logger.Info().Str("file", filePath).Msg("loading fallback dataset")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open dataset file")
		return nil, fmt.Errorf("failed to open dataset file %s: %w", filePath, err)
	}
	defer file.Close()

	items, err := decode(ctx, file, strings.HasSuffix(filePath, ".gz"))
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to decode dataset file")
		return nil, fmt.Errorf("failed to decode dataset file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("items_loaded", len(items)).
		Msg("fallback dataset loaded")

	return items, nil
}

// decode reads a JSON array of raw items and normalizes it with the same rules
// applied to CMS listings.
func decode(ctx context.Context, r io.Reader, gzipped bool) ([]model.FahndungItem, error) {
	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw []any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("expected a JSON array of items: %w", err)
	}
	return typo3.NormalizeItems(raw), nil
}
