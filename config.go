package pagecache

import (
	"io"

	"github.com/pkg/errors"
)

// Config holds every compile-time-fixed constant from spec.md §6. Zero
// value is not directly usable; build one with NewConfig and Option
// functions, mirroring the teacher's functional-options idiom (see
// tinylfu.Option).
type Config struct {
	LargePageShift     uint
	SmallPageShift     uint
	SmallPageSizeShift uint

	LRUSize  int
	TLFUSize uint32

	SampleSize    uint32
	UseDoorKeeper bool
	DoorKeeperFPR float64

	LoadedPageNumber   int
	LargePagePeriod    uint64
	FrequencyThreshold uint64

	TTLEvictionProb float64
	BernoulliSeed   int64

	AcceleratorFPR float64 // 0 disables the per-small-page Bloom accelerator

	// Trace, if set, receives a one-line human-readable summary after
	// every Store() call. Never written to on the Get/Update hot path
	// (spec.md §7: "no log is emitted on the hot path").
	Trace io.Writer
}

// Option configures a Config at construction time.
type Option func(*Config)

// defaultConfig mirrors the original cache_config.hpp constants.
func defaultConfig() Config {
	return Config{
		LargePageShift:     13,
		SmallPageShift:     8,
		SmallPageSizeShift: 10,
		LRUSize:            50000,
		TLFUSize:           1000,
		SampleSize:         10000,
		UseDoorKeeper:      false,
		DoorKeeperFPR:      0.01,
		LoadedPageNumber:   20,
		LargePagePeriod:    2000,
		FrequencyThreshold: 370,
		TTLEvictionProb:    0,
		BernoulliSeed:      0,
	}
}

// WithLargePageShift sets LARGE_PAGE_SHIFT (directory size D = 2^shift).
func WithLargePageShift(shift uint) Option {
	return func(c *Config) { c.LargePageShift = shift }
}

// WithSmallPageShift sets SMALL_PAGE_SHIFT (small-page fan-out P = 2^shift + 1).
func WithSmallPageShift(shift uint) Option {
	return func(c *Config) { c.SmallPageShift = shift }
}

// WithSmallPageSizeShift sets SMALL_PAGE_SIZE_SHIFT (slot count S = 2^shift).
func WithSmallPageSizeShift(shift uint) Option {
	return func(c *Config) { c.SmallPageSizeShift = shift }
}

// WithLRUSize sets the recency window capacity; 0 disables the LRU.
func WithLRUSize(size int) Option {
	return func(c *Config) { c.LRUSize = size }
}

// WithTLFUSize sets the Count-Min Sketch width before rounding to the
// next power of two.
func WithTLFUSize(width uint32) Option {
	return func(c *Config) { c.TLFUSize = width }
}

// WithSampleSize sets the TinyLFU aging period.
func WithSampleSize(n uint32) Option {
	return func(c *Config) { c.SampleSize = n }
}

// WithDoorKeeper enables the doorkeeper Bloom filter variant, sized at
// falsePositiveRate for TLFU_SIZE entries.
func WithDoorKeeper(falsePositiveRate float64) Option {
	return func(c *Config) {
		c.UseDoorKeeper = true
		c.DoorKeeperFPR = falsePositiveRate
	}
}

// WithLoadedPageNumber sets R, the resident pool size.
func WithLoadedPageNumber(r int) Option {
	return func(c *Config) { c.LoadedPageNumber = r }
}

// WithLargePagePeriod sets the directory aging period, in operations.
func WithLargePagePeriod(period uint64) Option {
	return func(c *Config) { c.LargePagePeriod = period }
}

// WithFrequencyThreshold sets the large-page swap hysteresis gap.
func WithFrequencyThreshold(threshold uint64) Option {
	return func(c *Config) { c.FrequencyThreshold = threshold }
}

// WithTTLEvictionProb switches the LRU window's TTL check to Bernoulli
// sampling with the given probability, instead of comparing against the
// caller's clock. 0 (the default) keeps deterministic expiration
// comparison. Small-page lookups always compare expiration against now,
// whatever this setting.
func WithTTLEvictionProb(prob float64) Option {
	return func(c *Config) { c.TTLEvictionProb = prob }
}

// WithBernoulliSeed fixes the seed used for Bernoulli TTL sampling. 0 (the
// default) seeds from a non-deterministic source.
func WithBernoulliSeed(seed int64) Option {
	return func(c *Config) { c.BernoulliSeed = seed }
}

// WithPerPageAccelerator enables a per-small-page Bloom filter negative-
// lookup accelerator sized at the given false-positive rate (spec.md
// SUPPLEMENTED FEATURES, grounded on the original's USE_BF_FLAG path).
func WithPerPageAccelerator(falsePositiveRate float64) Option {
	return func(c *Config) { c.AcceleratorFPR = falsePositiveRate }
}

// WithTrace sets the writer that receives a summary line after each
// Store() call.
func WithTrace(w io.Writer) Option {
	return func(c *Config) { c.Trace = w }
}

// NewConfig builds a Config from the defaults, applying opts in order,
// and validates it.
func NewConfig(opts ...Option) (Config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DirectorySize returns D = 2^LargePageShift.
func (c Config) DirectorySize() int {
	return 1 << c.LargePageShift
}

// SmallPageSize returns S = 2^SmallPageSizeShift.
func (c Config) SmallPageSize() int {
	return 1 << c.SmallPageSizeShift
}

// Validate enforces the configuration-inconsistency checks from
// spec.md §7 ("detected at startup — fatal").
func (c Config) Validate() error {
	if c.LargePageShift+c.SmallPageShift+c.SmallPageSizeShift > 32 {
		return errors.New("pagecache: LargePageShift + SmallPageShift + SmallPageSizeShift must be <= 32")
	}
	if c.LoadedPageNumber <= 0 {
		return errors.New("pagecache: LoadedPageNumber must be positive")
	}
	if c.LoadedPageNumber > c.DirectorySize() {
		return errors.New("pagecache: LoadedPageNumber must be <= DirectorySize")
	}
	if c.SmallPageSize()%16 != 0 {
		return errors.New("pagecache: SmallPageSize must be a multiple of 16 (the widest SIMD block)")
	}
	if c.LRUSize < 0 {
		return errors.New("pagecache: LRUSize must be non-negative")
	}
	if c.TTLEvictionProb < 0 || c.TTLEvictionProb > 1 {
		return errors.New("pagecache: TTLEvictionProb must be in [0, 1]")
	}
	return nil
}
