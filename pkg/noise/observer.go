package noise

import "time"

// OpObserver receives a notification after each of the five primitive
// operations spec.md's ambient-stack expansion names for external
// instrumentation: mix_hash, mix_shared_secret (and mix_psk, which reuses
// the same counter), encrypt, decrypt and split. pkg/noise has zero
// import-time dependency on any concrete observer — metrics.NoiseObserver
// in pkg/metrics implements this interface structurally.
type OpObserver interface {
	OnMixHash()
	OnMixSharedSecret()
	OnEncrypt(d time.Duration)
	OnDecrypt(d time.Duration, err error)
	OnSplit()
}

// Option configures optional extensions when constructing a SymmetricState.
type Option func(*state)

// WithObserver attaches o to the constructed state and every state derived
// from it via MixSharedSecret/MixPSK.
func WithObserver(o OpObserver) Option {
	return func(s *state) { s.observer = o }
}

func (s *state) notifyMixHash() {
	if s.observer != nil {
		s.observer.OnMixHash()
	}
}

func (s *state) notifyMixSharedSecret() {
	if s.observer != nil {
		s.observer.OnMixSharedSecret()
	}
}

func (s *state) notifyEncrypt(d time.Duration) {
	if s.observer != nil {
		s.observer.OnEncrypt(d)
	}
}

func (s *state) notifyDecrypt(d time.Duration, err error) {
	if s.observer != nil {
		s.observer.OnDecrypt(d, err)
	}
}

func (s *state) notifySplit() {
	if s.observer != nil {
		s.observer.OnSplit()
	}
}
