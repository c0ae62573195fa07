package fetch

import "time"

// Options configures one Fetch call. Zero-value fields fall back to the
// defaults in spec.md §4.1.
type Options struct {
	// ExpectedSize, when known, drives the resume/restart decisions in
	// spec.md §4.1. Zero means unknown.
	ExpectedSize int64

	Headers map[string]string

	// Backoff schedule.
	InitialBackoff time.Duration
	Multiplier     float64
	MaxBackoff     time.Duration
	JitterFraction float64
	MaxRetries     int

	// Independent timeout clocks, per spec.md §4.1.
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration

	// ProgressInterval throttles OnProgress; spec.md default 100ms.
	ProgressInterval time.Duration
	OnProgress       func(Progress)
}

// DefaultOptions returns the spec.md §4.1 defaults.
func DefaultOptions() Options {
	return Options{
		InitialBackoff:   5 * time.Second,
		Multiplier:       2,
		MaxBackoff:       60 * time.Second,
		JitterFraction:   0.25,
		MaxRetries:       5,
		ConnectTimeout:   300 * time.Second,
		SocketTimeout:    300 * time.Second,
		ProgressInterval: 100 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = d.InitialBackoff
	}
	if o.Multiplier <= 0 {
		o.Multiplier = d.Multiplier
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = d.MaxBackoff
	}
	if o.JitterFraction <= 0 {
		o.JitterFraction = d.JitterFraction
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	if o.SocketTimeout <= 0 {
		o.SocketTimeout = d.SocketTimeout
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = d.ProgressInterval
	}
	return o
}

// Progress is emitted to Options.OnProgress no more than once per
// ProgressInterval, per spec.md §4.1.
type Progress struct {
	BytesDownloaded int64
	TotalBytes      int64
	BytesPerSecond  float64
	ETASeconds      float64
	Percent         float64
	IsResuming      bool
	BytesResumedFrom int64
	RetryAttempt    int
}

// Result summarises a successful fetch.
type Result struct {
	BytesWritten int64
	Attempts     int
	Resumed      bool
}
