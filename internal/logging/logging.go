// Package logging builds the zap logger shared by the client, cache, and
// fake API. The terminal UI owns stdout, so logs go to a file or nowhere.
package logging

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/smileynet/postdesk/internal/config"
)

// New returns a JSON logger writing to cfg.File at cfg.Level. An empty File
// returns a no-op logger.
func New(cfg config.Log) (*zap.Logger, error) {
	if cfg.File == "" {
		return zap.NewNop(), nil
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.Sampling = nil
	zcfg.OutputPaths = []string{cfg.File}
	zcfg.ErrorOutputPaths = []string{cfg.File}

	log, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: opening %s: %w", cfg.File, err)
	}
	return log, nil
}

// Stderr returns a console logger on stderr for non-interactive commands
// such as fake-api.
func Stderr(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: level %q: %w", level, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = lvl
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
