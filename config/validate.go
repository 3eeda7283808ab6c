package config

import (
	"fmt"

	"challengechain/crypto"
	"challengechain/native/challenge"
	"challengechain/storage"
)

// Validate checks the values a node cannot start without.
func (c *Config) Validate() error {
	switch c.DBBackend {
	case storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("DBBackend: unsupported backend %q", c.DBBackend)
	}
	if c.RateLimitPerSecond < 0 {
		return fmt.Errorf("RateLimitPerSecond: must not be negative")
	}
	if c.RateLimitBurst < 0 {
		return fmt.Errorf("RateLimitBurst: must not be negative")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.SampleRatio: must be within [0,1]")
	}
	if _, err := crypto.ParseAddress(c.PlatformAccount); err != nil {
		return fmt.Errorf("PlatformAccount: %w", err)
	}
	if _, err := crypto.ParseAddress(c.Authority); err != nil {
		return fmt.Errorf("Authority: %w", err)
	}
	return nil
}

// ChallengeParams converts the fee settings into engine params. The platform
// account is required here even though Load accepts it empty.
func (c *Config) ChallengeParams() (challenge.Params, error) {
	platform, err := crypto.ParseAddress(c.PlatformAccount)
	if err != nil {
		return challenge.Params{}, fmt.Errorf("PlatformAccount: %w", err)
	}
	if platform == ([20]byte{}) {
		return challenge.Params{}, fmt.Errorf("PlatformAccount: required")
	}
	authority, err := crypto.ParseAddress(c.Authority)
	if err != nil {
		return challenge.Params{}, fmt.Errorf("Authority: %w", err)
	}
	return challenge.Params{
		PlatformAccount: platform,
		Authority:       authority,
		SubmissionFee:   c.SubmissionFee,
		CreationFee:     c.CreationFee,
		EscrowFunding:   c.EscrowFunding,
	}, nil
}
