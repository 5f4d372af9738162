package svcreg

import (
	"errors"
	"os"
	"time"

	"github.com/confkit/svcreg/internal/model"
	"github.com/horockey/go-toolbox/options"
	"github.com/rs/zerolog"
)

type createRegistryParams struct {
	logger zerolog.Logger
	pool   model.BridgePool
}

func defaultCreateRegistryParams() createRegistryParams {
	return createRegistryParams{
		logger: zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Str("scope", "svcreg").
			Logger(),
	}
}

// Sets custom logger.
// Default is stdout logger.
func WithLogger(l zerolog.Logger) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		target.logger = l
		return nil
	}
}

// Sets user-defined bridge pool implementation.
// Default is the in-memory pool.
func WithBridgePool(pool model.BridgePool) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		if pool == nil {
			return errors.New("got nil bridge pool")
		}
		target.pool = pool
		return nil
	}
}
