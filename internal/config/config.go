package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceFileExt is the recognized script file extension.
const SourceFileExt = ".ams"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{SourceFileExt, ".automa"}

const (
	// DefaultMaxBlockTime bounds one uninterrupted synchronous run of a
	// thread before it must yield back to the event loop.
	DefaultMaxBlockTime = 50 * time.Millisecond

	// DefaultMaxRunTime bounds a thread's total lifetime. Zero means
	// unlimited.
	DefaultMaxRunTime = time.Duration(0)

	// DefaultSyncRunTime bounds synchronous-to-completion evaluation.
	DefaultSyncRunTime = 10 * time.Second

	// MaxStackDepth bounds the explicit frame stack of one thread.
	MaxStackDepth = 128

	// ReplPrompt is the interactive prompt of the CLI.
	ReplPrompt = "automa> "

	// ReplHistoryFile is the readline history file, relative to $HOME.
	ReplHistoryFile = ".automa_history"
)

// Limits are the tunable runtime bounds, loadable from a YAML config
// file.
type Limits struct {
	MaxBlockTime  time.Duration `yaml:"maxBlockTime"`
	MaxRunTime    time.Duration `yaml:"maxRunTime"`
	MaxStackDepth int           `yaml:"maxStackDepth"`
	GlobalsDB     string        `yaml:"globalsDB"`
	Latitude      float64       `yaml:"latitude"`
	Longitude     float64       `yaml:"longitude"`
}

// DefaultLimits returns the built-in bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxBlockTime:  DefaultMaxBlockTime,
		MaxRunTime:    DefaultMaxRunTime,
		MaxStackDepth: MaxStackDepth,
	}
}

// LoadLimits reads limits from a YAML file, filling unset fields with
// defaults. A missing file is not an error.
func LoadLimits(path string) (Limits, error) {
	l := DefaultLimits()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return l, err
	}
	if err := yaml.Unmarshal(data, &l); err != nil {
		return l, err
	}
	if l.MaxStackDepth <= 0 {
		l.MaxStackDepth = MaxStackDepth
	}
	if l.MaxBlockTime <= 0 {
		l.MaxBlockTime = DefaultMaxBlockTime
	}
	return l, nil
}
