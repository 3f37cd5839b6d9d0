package config

import "context"

// RuntimeFlags is the snapshot of runtime-mutable feature flags read at call
// time. Services receive a FlagStore and take a fresh snapshot per request;
// they never cache it across requests.
type RuntimeFlags struct {
	// EnforceDeviceFingerprint extends trusted-device fingerprint checking
	// from admins (always enforced) to every role.
	EnforceDeviceFingerprint bool
}

// FlagStore serves runtime flag snapshots. Propagation across instances is
// eventual, not immediate.
type FlagStore interface {
	Snapshot(ctx context.Context) RuntimeFlags
	SetEnforceDeviceFingerprint(ctx context.Context, enabled bool) error
}

// StaticFlagStore is a fixed-value FlagStore for tests and single-instance
// deployments without redis.
type StaticFlagStore struct {
	Flags RuntimeFlags
}

func (s *StaticFlagStore) Snapshot(context.Context) RuntimeFlags {
	return s.Flags
}

func (s *StaticFlagStore) SetEnforceDeviceFingerprint(_ context.Context, enabled bool) error {
	s.Flags.EnforceDeviceFingerprint = enabled
	return nil
}
