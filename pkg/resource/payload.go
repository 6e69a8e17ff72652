package resource

import "sync"

// payload is the shared, reference-counted native buffer behind one or
// more MediaResource handles. It is immutable once constructed; only the
// refcount mutates, and that mutation is confined to retain/release.
type payload struct {
	mu    sync.Mutex
	bytes []byte
	refs  int
}

func newPayload(data []byte) *payload {
	return &payload{bytes: data, refs: 1}
}

// retain increments the refcount and returns the same payload, for use by
// clone operations that will hand the result to a new resource handle.
func (p *payload) retain() *payload {
	p.mu.Lock()
	p.refs++
	p.mu.Unlock()
	return p
}

// release decrements the refcount, freeing the backing buffer once the
// last handle releases it.
func (p *payload) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs--
	if p.refs <= 0 {
		p.bytes = nil
	}
}

// bytesOrNil returns the buffer, or nil if it has already been freed.
func (p *payload) bytesOrNil() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes
}

func (p *payload) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bytes)
}

// detachTransferable copies a caller-supplied buffer into a new payload
// and zeroes every byte of the caller's slice so it can no longer observe
// the bytes it transferred away. Go slices cannot be
// detached in place from the caller's variable (there is no handle to
// their backing array to zero elsewhere), so this mimics the JS
// ArrayBuffer-transfer contract as closely as the language allows: the
// caller must pass the slice by value and discard their copy.
func detachTransferable(buf []byte) *payload {
	owned := make([]byte, len(buf))
	copy(owned, buf)
	for i := range buf {
		buf[i] = 0
	}
	return newPayload(owned)
}
