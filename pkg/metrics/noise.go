package metrics

import (
	"sync/atomic"
	"time"
)

// NoiseCollector aggregates call counts and latency histograms for
// pkg/noise's five primitive operations — mix_hash, mix_shared_secret,
// encrypt, decrypt and split — as distinct from Collector above, which
// counts tunnel/session-level traffic (bytes/packets on the wire, session
// lifecycle). A single handshake drives many mix_hash/mix_shared_secret
// calls per transport-level packet, so these are tracked separately.
type NoiseCollector struct {
	mixHashCalls         atomic.Uint64
	mixSharedSecretCalls atomic.Uint64
	splitCalls           atomic.Uint64
	decryptErrors        atomic.Uint64

	encryptLatency *Histogram
	decryptLatency *Histogram

	createdAt time.Time
	labels    Labels
}

// NewNoiseCollector creates a new noise-operation metrics collector.
func NewNoiseCollector(labels Labels) *NoiseCollector {
	if labels == nil {
		labels = make(Labels)
	}
	return &NoiseCollector{
		encryptLatency: NewHistogram(LatencyBuckets),
		decryptLatency: NewHistogram(LatencyBuckets),
		createdAt:      time.Now(),
		labels:         labels,
	}
}

// RecordMixHash increments the mix_hash call counter.
func (c *NoiseCollector) RecordMixHash() { c.mixHashCalls.Add(1) }

// RecordMixSharedSecret increments the mix_shared_secret call counter
// (shared by mix_psk, which is the same HKDF-keying operation).
func (c *NoiseCollector) RecordMixSharedSecret() { c.mixSharedSecretCalls.Add(1) }

// RecordSplit increments the split call counter.
func (c *NoiseCollector) RecordSplit() { c.splitCalls.Add(1) }

// RecordEncrypt records an encrypt operation's latency.
func (c *NoiseCollector) RecordEncrypt(d time.Duration) {
	c.encryptLatency.Observe(float64(d.Microseconds()))
}

// RecordDecrypt records a decrypt operation's latency and, on failure,
// increments the decrypt error counter.
func (c *NoiseCollector) RecordDecrypt(d time.Duration, err error) {
	c.decryptLatency.Observe(float64(d.Microseconds()))
	if err != nil {
		c.decryptErrors.Add(1)
	}
}

// NoiseSnapshot is a point-in-time read of a NoiseCollector's counters.
type NoiseSnapshot struct {
	Timestamp            time.Time
	Uptime               time.Duration
	MixHashCalls         uint64
	MixSharedSecretCalls uint64
	SplitCalls           uint64
	DecryptErrors        uint64
	EncryptLatency       HistogramSummary
	DecryptLatency       HistogramSummary
	Labels               Labels
}

// Snapshot returns a point-in-time snapshot of the collector's counters.
func (c *NoiseCollector) Snapshot() NoiseSnapshot {
	return NoiseSnapshot{
		Timestamp:            time.Now(),
		Uptime:               time.Since(c.createdAt),
		MixHashCalls:         c.mixHashCalls.Load(),
		MixSharedSecretCalls: c.mixSharedSecretCalls.Load(),
		SplitCalls:           c.splitCalls.Load(),
		DecryptErrors:        c.decryptErrors.Load(),
		EncryptLatency:       c.encryptLatency.Summary(),
		DecryptLatency:       c.decryptLatency.Summary(),
		Labels:               c.labels,
	}
}

// Reset clears all counters (useful for testing).
func (c *NoiseCollector) Reset() {
	c.mixHashCalls.Store(0)
	c.mixSharedSecretCalls.Store(0)
	c.splitCalls.Store(0)
	c.decryptErrors.Store(0)
	c.encryptLatency.Reset()
	c.decryptLatency.Reset()
	c.createdAt = time.Now()
}

// NoiseObserver adapts a NoiseCollector, plus an optional logger, to
// noise.OpObserver's method set (OnMixHash/OnMixSharedSecret/OnEncrypt/
// OnDecrypt/OnSplit) — the pkg/metrics half of the noise-operation
// instrumentation described for this package. pkg/noise never imports
// pkg/metrics; it defines OpObserver and accepts any type whose method set
// satisfies it, which NoiseObserver does structurally. Callers wire it in
// with noise.WithObserver when constructing a SymmetricState.
type NoiseObserver struct {
	collector *NoiseCollector
	logger    *Logger
}

// NoiseObserverConfig configures a NoiseObserver.
type NoiseObserverConfig struct {
	Collector *NoiseCollector
	Logger    *Logger
}

// NewNoiseObserver creates a new noise-operation observer.
func NewNoiseObserver(cfg NoiseObserverConfig) *NoiseObserver {
	if cfg.Collector == nil {
		cfg.Collector = NewNoiseCollector(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}
	return &NoiseObserver{
		collector: cfg.Collector,
		logger:    cfg.Logger.Named("noise"),
	}
}

// Collector returns the underlying counters, for snapshotting or export.
func (o *NoiseObserver) Collector() *NoiseCollector { return o.collector }

// OnMixHash records a mix_hash call.
func (o *NoiseObserver) OnMixHash() { o.collector.RecordMixHash() }

// OnMixSharedSecret records a mix_shared_secret (or mix_psk) call.
func (o *NoiseObserver) OnMixSharedSecret() { o.collector.RecordMixSharedSecret() }

// OnEncrypt records an encrypt call's latency.
func (o *NoiseObserver) OnEncrypt(d time.Duration) { o.collector.RecordEncrypt(d) }

// OnDecrypt records a decrypt call's latency and logs MAC failures at
// debug level.
func (o *NoiseObserver) OnDecrypt(d time.Duration, err error) {
	o.collector.RecordDecrypt(d, err)
	if err != nil {
		o.logger.Debug("noise decrypt failed", Fields{"error": err.Error()})
	}
}

// OnSplit records a split call.
func (o *NoiseObserver) OnSplit() {
	o.collector.RecordSplit()
	o.logger.Debug("symmetric state split into transport ciphers")
}
