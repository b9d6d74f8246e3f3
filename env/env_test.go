//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package env

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/markkurossi/mascot/field"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var cfg Config

	require.Equal(t, rand.Reader, cfg.GetRandom())
	require.Same(t, field.Default(), cfg.GetField())
	require.Equal(t, DefaultGroupSize, cfg.GetGroupSize())
	require.Equal(t, DefaultBatchSize, cfg.GetBatchSize())
	require.NoError(t, cfg.Validate())

	cfg.GroupSize = -1
	require.Error(t, cfg.Validate())

	cfg.GroupSize = 1
	cfg.BatchSize = -5
	require.Error(t, cfg.Validate())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	cfg := &Config{
		Logger: &log,
	}
	l := cfg.GetLogger("triple", 2)
	l.Info().Msg("hello")
	require.Contains(t, buf.String(), `"component":"triple"`)
	require.Contains(t, buf.String(), `"party":2`)

	// The default logger discards events.
	var empty Config
	nop := empty.GetLogger("triple", 0)
	nop.Info().Msg("discarded")
}
