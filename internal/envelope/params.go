package envelope

import (
	"fmt"

	"cipherkeep/internal/failure"
)

const (
	// SaltBytes is the length of a freshly generated account salt.
	SaltBytes = 16
	// KeyBytes is the length of the master secret and both subkeys.
	KeyBytes = 32

	minMemoryKiB  = 64 * 1024
	minIterations = 3
)

// Params are the Argon2id cost parameters.
type Params struct {
	MemoryKiB   uint32 `json:"m" mapstructure:"memory_kib"`
	Iterations  uint32 `json:"t" mapstructure:"iterations"`
	Parallelism uint8  `json:"p" mapstructure:"parallelism"`
}

// DefaultParams returns the production parameters.
func DefaultParams() Params {
	return Params{MemoryKiB: minMemoryKiB, Iterations: minIterations, Parallelism: 1}
}

// Validate enforces the production floor.
func (p Params) Validate() error {
	if p.MemoryKiB < minMemoryKiB {
		return failure.InvalidArg(fmt.Sprintf("argon2id memory %d KiB below %d KiB", p.MemoryKiB, minMemoryKiB))
	}
	if p.Iterations < minIterations {
		return failure.InvalidArg(fmt.Sprintf("argon2id iterations %d below %d", p.Iterations, minIterations))
	}
	if p.Parallelism != 1 {
		return failure.InvalidArg("argon2id parallelism must be 1")
	}
	return nil
}

func (p Params) usable() error {
	if p.MemoryKiB == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return failure.InvalidArg("argon2id parameters must be non-zero")
	}
	return nil
}
