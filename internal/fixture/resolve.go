package fixture

import (
	"context"

	"fahndungsportal/internal/model"

	"github.com/rs/zerolog"
)

// Resolve returns the dataset stored under key, or the built-in dataset when
// key is empty, loading fails or the stored dataset has no usable items.
// It never returns an empty dataset.
func Resolve(ctx context.Context, loader Loader, key string, logger zerolog.Logger) []model.FahndungItem {
	if key == "" || loader == nil {
		return Builtin()
	}

	items, err := loader.Load(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("using built-in fallback dataset")
		return Builtin()
	}
	if len(items) == 0 {
		logger.Warn().Str("key", key).Msg("fallback dataset is empty, using built-in dataset")
		return Builtin()
	}
	return items
}
