//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package env implements global environment for the preprocessing
// system.
package env

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/markkurossi/mascot/field"
	"github.com/rs/zerolog"
)

const (
	// DefaultGroupSize defines the default number of left factors
	// combined with each right factor in triple generation.
	DefaultGroupSize = 3

	// DefaultBatchSize defines the default number of triples the
	// supplier generates per refill.
	DefaultBatchSize = 1024
)

var nopLogger = zerolog.Nop()

// Config defines the global system configuration. It configures
// system operation for all modules. Config must not be modified after
// being passed to any module. It is safe for concurrent use by
// multiple modules and parties as they do not modify it.
type Config struct {
	// Rand is the source of entropy.
	Rand io.Reader

	// Field is the prime field of the computation.
	Field *field.Field

	// GroupSize is the number of left factors per right factor in
	// triple generation. It trades local computation against
	// communication and does not change the number of generated
	// triples.
	GroupSize int

	// BatchSize is the number of triples generated at once by
	// triple suppliers.
	BatchSize int

	// Logger receives structured log events.
	Logger *zerolog.Logger
}

// GetRandom returns the source of entropy for OT, sharing, and other
// cryptography operations.
func (config *Config) GetRandom() io.Reader {
	if config.Rand != nil {
		return config.Rand
	}
	return rand.Reader
}

// GetField returns the prime field.
func (config *Config) GetField() *field.Field {
	if config.Field != nil {
		return config.Field
	}
	return field.Default()
}

// GetGroupSize returns the triple generation group size.
func (config *Config) GetGroupSize() int {
	if config.GroupSize != 0 {
		return config.GroupSize
	}
	return DefaultGroupSize
}

// GetBatchSize returns the triple supplier batch size.
func (config *Config) GetBatchSize() int {
	if config.BatchSize != 0 {
		return config.BatchSize
	}
	return DefaultBatchSize
}

// GetLogger returns the logger for the component of the party.
func (config *Config) GetLogger(component string, party int) zerolog.Logger {
	log := config.Logger
	if log == nil {
		log = &nopLogger
	}
	return log.With().Str("component", component).Int("party", party).
		Logger()
}

// Validate checks the configuration.
func (config *Config) Validate() error {
	if config.GetGroupSize() < 1 {
		return fmt.Errorf("env: invalid group size %d", config.GroupSize)
	}
	if config.GetBatchSize() < 1 {
		return fmt.Errorf("env: invalid batch size %d", config.BatchSize)
	}
	return nil
}
