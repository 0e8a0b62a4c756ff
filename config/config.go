// Package config holds the tunable knobs of the engine. A Config is
// loaded once per process (or per test) and handed by reference to the
// scan engine and the tablet manager.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config bundles every runtime knob. Zero-value fields are filled in by
// EnsureDefaults, a "defaults applied on demand" shape.
type Config struct {
	// ScannerRowNum is doris_scanner_row_num: the number of rows a scanner
	// reads before voluntarily resubmitting itself.
	ScannerRowNum int64 `yaml:"scanner_row_num"`

	// ChunkSize is the number of rows per Chunk (the state->chunk_size()
	// of the original).
	ChunkSize int64 `yaml:"chunk_size"`

	// MaxScannerConcurrency is max_hdfs_scanner_num: the maximum number of
	// scanners that may run concurrently for one node.
	MaxScannerConcurrency int `yaml:"max_scanner_concurrency"`

	// MaxOpenFileHandles is max_hdfs_file_handle: the open-file budget that
	// gates scanner admission.
	MaxOpenFileHandles int32 `yaml:"max_open_file_handles"`

	// ThreadPoolSize is the fixed worker count of the PriorityThreadPool.
	ThreadPoolSize int `yaml:"thread_pool_size"`

	// ThreadPoolQueueDepth bounds how many tasks may sit in the pool's
	// pending heap before TryOffer starts failing.
	ThreadPoolQueueDepth int `yaml:"thread_pool_queue_depth"`

	// MetaCacheCapacity is the byte budget of the tablet manager's
	// MetaCache.
	MetaCacheCapacity int64 `yaml:"meta_cache_capacity"`
}

// Default returns the configuration the production binary ships with.
func Default() *Config {
	c := &Config{}
	c.EnsureDefaults()
	return c
}

// EnsureDefaults fills every zero-valued field with its production default.
func (c *Config) EnsureDefaults() {
	if c.ScannerRowNum == 0 {
		c.ScannerRowNum = 16384
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 4096
	}
	if c.MaxScannerConcurrency == 0 {
		c.MaxScannerConcurrency = 8
	}
	if c.MaxOpenFileHandles == 0 {
		c.MaxOpenFileHandles = 1024
	}
	if c.ThreadPoolSize == 0 {
		c.ThreadPoolSize = 4
	}
	if c.ThreadPoolQueueDepth == 0 {
		c.ThreadPoolQueueDepth = 4096
	}
	if c.MetaCacheCapacity == 0 {
		c.MetaCacheCapacity = 256 << 20
	}
}

// ChunksPerScanner computes ceil(scanner_row_num / chunk_size), the
// number of chunks a fully-supplied scanner needs in flight.
func (c *Config) ChunksPerScanner() int {
	n := c.ScannerRowNum / c.ChunkSize
	if c.ScannerRowNum%c.ChunkSize != 0 {
		n++
	}
	return int(n)
}

// Load reads a YAML configuration file and applies defaults to any field
// left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	c.EnsureDefaults()
	return c, nil
}
