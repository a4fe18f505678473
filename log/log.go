package log

import (
	"github.com/rs/zerolog"

	"github.com/lattice-ecs/lattice/component"
	"github.com/lattice-ecs/lattice/types"
)

func loadComponentIntoArrayLogger(
	meta *component.Metadata,
	arrayLogger *zerolog.Array,
) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Int("component_id", int(meta.ID()))
	dictLogger = dictLogger.Str("component_name", meta.Name())
	dictLogger = dictLogger.Str("multiplicity", meta.Multiplicity().String())
	return arrayLogger.Dict(dictLogger)
}

func loadComponentsToEvent(zeroLoggerEvent *zerolog.Event, registry *component.Registry) *zerolog.Event {
	components := registry.Components()
	zeroLoggerEvent.Int("total_components", len(components))
	arrayLogger := zerolog.Arr()
	for _, meta := range components {
		arrayLogger = loadComponentIntoArrayLogger(meta, arrayLogger)
	}
	return zeroLoggerEvent.Array("components", arrayLogger)
}

// Components logs every registered component type.
func Components(logger *zerolog.Logger, registry *component.Registry, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, registry)
	zeroLoggerEvent.Send()
}

// Entity logs an entity's current composition.
func Entity(
	logger *zerolog.Logger, level zerolog.Level,
	entityID types.EntityID, components []*component.Metadata,
) {
	zeroLoggerEvent := logger.WithLevel(level)
	arrayLogger := zerolog.Arr()
	for _, meta := range components {
		arrayLogger = loadComponentIntoArrayLogger(meta, arrayLogger)
	}
	zeroLoggerEvent.Array("components", arrayLogger)
	zeroLoggerEvent.Uint64("entity_id", uint64(entityID))
	zeroLoggerEvent.Send()
}

// World logs everything known about the world's registry. The logger is
// expected to already carry the world namespace, see CreateWorldLogger.
func World(logger *zerolog.Logger, registry *component.Registry, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, registry)
	zeroLoggerEvent.Send()
}

// CreateQueryLogger creates a sub logger with the entry {"query": queryID}.
func CreateQueryLogger(logger *zerolog.Logger, queryID string) *zerolog.Logger {
	newLogger := logger.With().Str("query", queryID).Logger()
	return &newLogger
}

// CreateWorldLogger creates a sub logger with the entry {"world": namespace}.
func CreateWorldLogger(logger *zerolog.Logger, namespace string) *zerolog.Logger {
	newLogger := logger.With().Str("world", namespace).Logger()
	return &newLogger
}
