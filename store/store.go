// Package store is the durable key-value layer over round-state and binary
// ceremony artifacts: a journaled manifest plus a memory-mapped object map,
// one reader/writer lock per locator.
package store

import (
	"errors"
	"io"

	"github.com/powersoftau/ceremony/locator"
)

var (
	ErrLocatorAlreadyExists = errors.New("store: locator already exists")
	ErrLocatorMissing       = errors.New("store: locator missing")
	ErrFileSizeMismatch     = errors.New("store: file size mismatch")
	ErrStorageFailed        = errors.New("store: storage operation failed")
)

// ReadWriterAt is what Reader/Writer hand back: a view onto the mapped
// bytes of one artifact, safe for concurrent reads with other readers and
// serialized against writers by the locator's RW lock.
type ReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
	// Bytes exposes the full mapped region directly, for callers (like
	// buffercodec) that need to slice large buffers rather than copy
	// through ReadAt/WriteAt.
	Bytes() []byte
}

// Store is the polymorphic storage abstraction named in the Design Notes:
// one interface, a canonical disk-backed implementation, and an in-memory
// implementation for tests.
type Store interface {
	// Exists reports whether l is present in the manifest.
	Exists(l locator.Locator) bool
	// Size returns the byte length of l's backing artifact.
	Size(l locator.Locator) (int64, error)
	// Initialize creates a new, zero-filled artifact of the given size and
	// adds it to the manifest. Fails with ErrLocatorAlreadyExists if l is
	// already present.
	Initialize(l locator.Locator, size int64) error
	// Insert is Initialize(len(data)) followed by a full-buffer Update.
	Insert(l locator.Locator, data []byte) error
	// Update overwrites the full contents of an existing artifact.
	Update(l locator.Locator, data []byte) error
	// Copy duplicates src's current bytes into a newly initialized dst.
	Copy(src, dst locator.Locator) error
	// Remove deletes l's artifact and drops it from the manifest.
	Remove(l locator.Locator) error
	// Reader returns a read-locked view of l. expectedSize, when non-zero,
	// must match the artifact's actual size or ErrFileSizeMismatch is
	// returned (the size law for RoundFile/ContributionFile locators).
	Reader(l locator.Locator, expectedSize int64) (ReadWriterAt, func(), error)
	// Writer returns a write-locked view of l, same size contract as Reader.
	Writer(l locator.Locator, expectedSize int64) (ReadWriterAt, func(), error)

	// CurrentRoundHeight reads the round_height locator, 0 if absent.
	CurrentRoundHeight() (uint64, error)
	// SetCurrentRoundHeight persists a new round_height.
	SetCurrentRoundHeight(h uint64) error

	Close() error
}
