package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/edsrzf/mmap-go"

	"github.com/powersoftau/ceremony/locator"
	"github.com/powersoftau/ceremony/log"
)

type object struct {
	mu   sync.RWMutex
	file *os.File
	mm   mmap.MMap
	size int64
}

func (o *object) Bytes() []byte { return o.mm }

func (o *object) ReadAt(p []byte, off int64) (int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if off < 0 || off > o.size {
		return 0, fmt.Errorf("%w: offset %d out of range", ErrStorageFailed, off)
	}
	n := copy(p, o.mm[off:])
	return n, nil
}

func (o *object) WriteAt(p []byte, off int64) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if off < 0 || off+int64(len(p)) > o.size {
		return 0, fmt.Errorf("%w: write out of range at offset %d", ErrStorageFailed, off)
	}
	n := copy(o.mm[off:], p)
	return n, nil
}

// Disk is the canonical on-disk Store implementation: a single JSON
// manifest plus one memory-mapped file per locator, each guarded by its own
// reader/writer lock, exactly per spec §4.E.
type Disk struct {
	base string
	log  *log.Logger

	mu       sync.Mutex // guards manifest + objects below
	manifest map[string]struct{}
	objects  map[string]*object
}

// Load implements the Store.load(base) contract: create base if absent,
// create the manifest if absent, then open and memory-map every listed
// locator. A manifest entry whose file is missing is fatal, matching spec
// §7 ("storage and manifest inconsistencies detected at startup are fatal
// to the process").
func Load(base string) (*Disk, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating base dir: %v", ErrStorageFailed, err)
	}
	entries, err := loadManifest(base)
	if err != nil {
		return nil, err
	}
	d := &Disk{
		base:     base,
		log:      log.Default().Module("store"),
		manifest: make(map[string]struct{}, len(entries)),
		objects:  make(map[string]*object, len(entries)),
	}
	for _, rel := range entries {
		d.manifest[rel] = struct{}{}
		obj, err := openExisting(filepath.Join(base, rel))
		if err != nil {
			return nil, fmt.Errorf("%w: manifest entry %q: %v", ErrStorageFailed, rel, err)
		}
		d.objects[rel] = obj
	}
	d.log.Info("loaded store", "base", base, "objects", len(entries))
	return d, nil
}

func openExisting(path string) (*object, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		// mmap-go cannot map a zero-length file; keep the handle with a
		// nil mapping and special-case it in ReadAt/WriteAt/Bytes.
		return &object{file: f, size: 0}, nil
	}
	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &object{file: f, mm: mm, size: size}, nil
}

func createSized(path string, size int64) (*object, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, err
	}
	if size == 0 {
		return &object{file: f, size: 0}, nil
	}
	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &object{file: f, mm: mm, size: size}, nil
}

func (o *object) close() error {
	var err error
	if o.mm != nil {
		if e := o.mm.Flush(); e != nil {
			err = e
		}
		if e := o.mm.Unmap(); e != nil && err == nil {
			err = e
		}
	}
	if e := o.file.Close(); e != nil && err == nil {
		err = e
	}
	return err
}

func (d *Disk) Exists(l locator.Locator) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.manifest[locator.RelPath(l)]
	return ok
}

func (d *Disk) Size(l locator.Locator) (int64, error) {
	d.mu.Lock()
	obj, ok := d.objects[locator.RelPath(l)]
	d.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrLocatorMissing, locator.RelPath(l))
	}
	return obj.size, nil
}

// Initialize creates a new, zero-filled artifact: the file is created and
// memory-mapped first, then the manifest is updated to list it and fsynced
// — so a crash between the two leaves an orphan file, safely ignored as
// garbage on the next Load, never a dangling manifest entry.
func (d *Disk) Initialize(l locator.Locator, size int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rel := locator.RelPath(l)
	if _, ok := d.manifest[rel]; ok {
		return fmt.Errorf("%w: %s", ErrLocatorAlreadyExists, rel)
	}
	obj, err := createSized(filepath.Join(d.base, rel), size)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}
	entries := append(d.manifestEntriesLocked(), rel)
	if err := writeManifest(d.base, entries); err != nil {
		obj.close()
		os.Remove(filepath.Join(d.base, rel))
		return err
	}
	d.manifest[rel] = struct{}{}
	d.objects[rel] = obj
	return nil
}

func (d *Disk) manifestEntriesLocked() []string {
	entries := make([]string, 0, len(d.manifest))
	for rel := range d.manifest {
		entries = append(entries, rel)
	}
	return entries
}

func (d *Disk) Insert(l locator.Locator, data []byte) error {
	if err := d.Initialize(l, int64(len(data))); err != nil {
		return err
	}
	return d.Update(l, data)
}

func (d *Disk) Update(l locator.Locator, data []byte) error {
	d.mu.Lock()
	obj, ok := d.objects[locator.RelPath(l)]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocatorMissing, locator.RelPath(l))
	}
	if int64(len(data)) != obj.size {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrFileSizeMismatch, obj.size, len(data))
	}
	_, err := obj.WriteAt(data, 0)
	return err
}

func (d *Disk) Copy(src, dst locator.Locator) error {
	d.mu.Lock()
	srcObj, ok := d.objects[locator.RelPath(src)]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocatorMissing, locator.RelPath(src))
	}
	srcObj.mu.RLock()
	buf := make([]byte, srcObj.size)
	copy(buf, srcObj.mm)
	srcObj.mu.RUnlock()
	return d.Insert(dst, buf)
}

// Remove deletes the on-disk file first, then drops the manifest entry:
// a crash in between leaves a manifest entry with a missing file, which
// spec §7 treats as a fatal, operator-reconciled startup condition rather
// than a silent garbage-collectible state (unlike Initialize's ordering).
func (d *Disk) Remove(l locator.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rel := locator.RelPath(l)
	obj, ok := d.objects[rel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocatorMissing, rel)
	}
	if err := obj.close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}
	if err := os.Remove(filepath.Join(d.base, rel)); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}
	delete(d.objects, rel)
	delete(d.manifest, rel)
	return writeManifest(d.base, d.manifestEntriesLocked())
}

func (d *Disk) checkSize(l locator.Locator, obj *object, expectedSize int64) error {
	needsSizeLaw := l.Kind == locator.KindRoundFile || l.Kind == locator.KindContributionFile
	if needsSizeLaw && expectedSize != 0 && obj.size != expectedSize {
		return fmt.Errorf("%w: %s has %d bytes, expected %d", ErrFileSizeMismatch, locator.RelPath(l), obj.size, expectedSize)
	}
	return nil
}

func (d *Disk) Reader(l locator.Locator, expectedSize int64) (ReadWriterAt, func(), error) {
	d.mu.Lock()
	obj, ok := d.objects[locator.RelPath(l)]
	d.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrLocatorMissing, locator.RelPath(l))
	}
	if err := d.checkSize(l, obj, expectedSize); err != nil {
		return nil, nil, err
	}
	obj.mu.RLock()
	return obj, func() { obj.mu.RUnlock() }, nil
}

func (d *Disk) Writer(l locator.Locator, expectedSize int64) (ReadWriterAt, func(), error) {
	d.mu.Lock()
	obj, ok := d.objects[locator.RelPath(l)]
	d.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrLocatorMissing, locator.RelPath(l))
	}
	if err := d.checkSize(l, obj, expectedSize); err != nil {
		return nil, nil, err
	}
	// The object's own mutex already serializes writers against readers;
	// callers use the returned release func symmetrically to Reader.
	obj.mu.Lock()
	return obj, func() { obj.mu.Unlock() }, nil
}

func (d *Disk) CurrentRoundHeight() (uint64, error) {
	l := locator.RoundHeight()
	if !d.Exists(l) {
		return 0, nil
	}
	d.mu.Lock()
	obj := d.objects[locator.RelPath(l)]
	d.mu.Unlock()
	obj.mu.RLock()
	defer obj.mu.RUnlock()
	if obj.size < 8 {
		return 0, fmt.Errorf("%w: round_height too short", ErrStorageFailed)
	}
	return beUint64(obj.mm[:8]), nil
}

func (d *Disk) SetCurrentRoundHeight(h uint64) error {
	l := locator.RoundHeight()
	buf := beBytes(h)
	if !d.Exists(l) {
		return d.Insert(l, buf)
	}
	return d.Update(l, buf)
}

func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for _, obj := range d.objects {
		if err := obj.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func beBytes(h uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(h >> (8 * i))
	}
	return b
}

func beUint64(b []byte) uint64 {
	var h uint64
	for i := 0; i < 8; i++ {
		h = h<<8 | uint64(b[i])
	}
	return h
}
