package store

import (
	"fmt"
	"sync"

	"github.com/powersoftau/ceremony/locator"
)

type memObject struct {
	mu   sync.RWMutex
	data []byte
}

func (o *memObject) Bytes() []byte { return o.data }

func (o *memObject) ReadAt(p []byte, off int64) (int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if off < 0 || off > int64(len(o.data)) {
		return 0, fmt.Errorf("%w: offset %d out of range", ErrStorageFailed, off)
	}
	return copy(p, o.data[off:]), nil
}

func (o *memObject) WriteAt(p []byte, off int64) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if off < 0 || off+int64(len(p)) > int64(len(o.data)) {
		return 0, fmt.Errorf("%w: write out of range at offset %d", ErrStorageFailed, off)
	}
	return copy(o.data[off:], p), nil
}

// Memory is the in-memory Store implementation named in the Design Notes
// ("a Vec<u8>-backed buffer satisfies the same contract"), used by package
// tests that don't want real file I/O.
type Memory struct {
	mu      sync.Mutex
	objects map[string]*memObject
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]*memObject)}
}

func (m *Memory) Exists(l locator.Locator) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[locator.RelPath(l)]
	return ok
}

func (m *Memory) Size(l locator.Locator) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[locator.RelPath(l)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrLocatorMissing, locator.RelPath(l))
	}
	return int64(len(obj.data)), nil
}

func (m *Memory) Initialize(l locator.Locator, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rel := locator.RelPath(l)
	if _, ok := m.objects[rel]; ok {
		return fmt.Errorf("%w: %s", ErrLocatorAlreadyExists, rel)
	}
	m.objects[rel] = &memObject{data: make([]byte, size)}
	return nil
}

func (m *Memory) Insert(l locator.Locator, data []byte) error {
	if err := m.Initialize(l, int64(len(data))); err != nil {
		return err
	}
	return m.Update(l, data)
}

func (m *Memory) Update(l locator.Locator, data []byte) error {
	m.mu.Lock()
	obj, ok := m.objects[locator.RelPath(l)]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocatorMissing, locator.RelPath(l))
	}
	if len(data) != len(obj.data) {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrFileSizeMismatch, len(obj.data), len(data))
	}
	_, err := obj.WriteAt(data, 0)
	return err
}

func (m *Memory) Copy(src, dst locator.Locator) error {
	m.mu.Lock()
	srcObj, ok := m.objects[locator.RelPath(src)]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocatorMissing, locator.RelPath(src))
	}
	srcObj.mu.RLock()
	buf := make([]byte, len(srcObj.data))
	copy(buf, srcObj.data)
	srcObj.mu.RUnlock()
	return m.Insert(dst, buf)
}

func (m *Memory) Remove(l locator.Locator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rel := locator.RelPath(l)
	if _, ok := m.objects[rel]; !ok {
		return fmt.Errorf("%w: %s", ErrLocatorMissing, rel)
	}
	delete(m.objects, rel)
	return nil
}

func (m *Memory) checkSize(l locator.Locator, obj *memObject, expectedSize int64) error {
	needsSizeLaw := l.Kind == locator.KindRoundFile || l.Kind == locator.KindContributionFile
	if needsSizeLaw && expectedSize != 0 && int64(len(obj.data)) != expectedSize {
		return fmt.Errorf("%w: %s has %d bytes, expected %d", ErrFileSizeMismatch, locator.RelPath(l), len(obj.data), expectedSize)
	}
	return nil
}

func (m *Memory) Reader(l locator.Locator, expectedSize int64) (ReadWriterAt, func(), error) {
	m.mu.Lock()
	obj, ok := m.objects[locator.RelPath(l)]
	m.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrLocatorMissing, locator.RelPath(l))
	}
	if err := m.checkSize(l, obj, expectedSize); err != nil {
		return nil, nil, err
	}
	obj.mu.RLock()
	return obj, func() { obj.mu.RUnlock() }, nil
}

func (m *Memory) Writer(l locator.Locator, expectedSize int64) (ReadWriterAt, func(), error) {
	m.mu.Lock()
	obj, ok := m.objects[locator.RelPath(l)]
	m.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrLocatorMissing, locator.RelPath(l))
	}
	if err := m.checkSize(l, obj, expectedSize); err != nil {
		return nil, nil, err
	}
	obj.mu.Lock()
	return obj, func() { obj.mu.Unlock() }, nil
}

func (m *Memory) CurrentRoundHeight() (uint64, error) {
	l := locator.RoundHeight()
	m.mu.Lock()
	obj, ok := m.objects[locator.RelPath(l)]
	m.mu.Unlock()
	if !ok {
		return 0, nil
	}
	obj.mu.RLock()
	defer obj.mu.RUnlock()
	return beUint64(obj.data), nil
}

func (m *Memory) SetCurrentRoundHeight(h uint64) error {
	l := locator.RoundHeight()
	buf := beBytes(h)
	if !m.Exists(l) {
		return m.Insert(l, buf)
	}
	return m.Update(l, buf)
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
var _ Store = (*Disk)(nil)
