// Package pipeline orchestrates archive operations: it feeds raw entries
// from the tar codec through the policy engine, hands admitted entries to
// the manifest builder/verifier, and drives the filesystem collaborator.
// Policy evaluation is strictly sequential; only content hashing fans out.
package pipeline

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/tarmor/tarmor/internal/compress"
	"github.com/tarmor/tarmor/internal/manifest"
	"github.com/tarmor/tarmor/internal/policy"
)

// Pipeline binds one policy configuration and hashing setup to a sequence of
// operations. Quota state is NOT carried here: every operation creates its
// own engine, so concurrent operations never interfere.
type Pipeline struct {
	policy      policy.Config
	scheme      manifest.Scheme
	parallelism int
	log         *logrus.Entry
}

// New builds a pipeline. parallelism <= 0 selects one hashing worker per
// CPU; a nil logger discards all diagnostics.
func New(cfg policy.Config, scheme manifest.Scheme, parallelism int, log *logrus.Entry) *Pipeline {
	if scheme == "" {
		scheme = manifest.DefaultScheme
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Pipeline{
		policy:      cfg,
		scheme:      scheme,
		parallelism: parallelism,
		log:         log,
	}
}

// Summary is the outcome of one operation, consumed by the CLI for
// rendering and exit-code decisions.
type Summary struct {
	// Decisions holds every policy decision in input entry order,
	// admitted and rejected alike.
	Decisions []policy.Decision

	// Violations collects the rejections, in encounter order.
	Violations []*policy.Violation

	// Manifest is the built manifest; nil in plan mode.
	Manifest *manifest.Manifest

	// Report is the verification report when a stored manifest was
	// checked.
	Report *manifest.Report

	// Codec is the compression detected (extract/list) or used (create).
	Codec compress.Codec

	// EntriesSeen/BytesSeen are the final quota counters.
	EntriesSeen uint64
	BytesSeen   uint64
}
