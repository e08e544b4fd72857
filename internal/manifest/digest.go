package manifest

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Scheme selects the 256-bit digest algorithm used for manifest entries and
// the aggregate digest.
type Scheme string

const (
	SchemeSHA256   Scheme = "sha256"
	SchemeBLAKE2b  Scheme = "blake2b-256"
	SchemeSHA3_256 Scheme = "sha3-256"

	// DefaultScheme is used when no scheme is configured.
	DefaultScheme = SchemeSHA256
)

// Valid returns nil iff the scheme is known.
func (s Scheme) Valid() error {
	switch s {
	case SchemeSHA256, SchemeBLAKE2b, SchemeSHA3_256:
		return nil
	}
	return fmt.Errorf("unknown digest scheme %q", string(s))
}

// New returns a fresh hash for the scheme. Panics on an invalid scheme;
// callers validate configuration before building manifests.
func (s Scheme) New() hash.Hash {
	switch s {
	case SchemeSHA256:
		return sha256.New()
	case SchemeBLAKE2b:
		h, err := blake2b.New256(nil)
		if err != nil {
			panic(err)
		}
		return h
	case SchemeSHA3_256:
		return sha3.New256()
	}
	panic(s.Valid())
}
