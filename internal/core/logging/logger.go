package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComponentKey is the field that names the part of taskman emitting an event.
const ComponentKey = "cmp"

// Component derives a component logger from the global logger.
func Component(name string) zerolog.Logger {
	return Sub(log.Logger, name)
}

// Sub derives a component logger from parent, for callers that were handed a
// logger instead of relying on the global one.
func Sub(parent zerolog.Logger, name string) zerolog.Logger {
	return parent.With().Str(ComponentKey, name).Logger()
}
