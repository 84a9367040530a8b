// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package importer turns client buffers into GPU textures.
//
// Shared-memory buffers are uploaded synchronously; external buffers are
// bound without copying when the backend supports their format, plane
// count and modifier. Textures are cached per buffer and reference
// counted by in-flight frames. A texture whose buffer is destroyed, or
// which was replaced by a newer import while frames still sampled it, is
// freed once its last frame completes.
package importer

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/internal/cache"
	"github.com/gogpu/compositor/render"
)

// DefaultPoolSize is the number of idle shm images kept for reuse.
const DefaultPoolSize = 8

type poolKey struct {
	width, height int
	format        buffer.Format
}

// Stats counts importer activity.
type Stats struct {
	Imports  uint64
	Hits     uint64
	Uploads  uint64
	Reused   uint64
	Failures uint64
	Live     int
	Retired  int
	Pool     cache.Stats
}

// Option configures an Importer.
type Option func(*options)

type options struct {
	poolSize int
	logger   *slog.Logger
}

// WithPoolSize sets how many idle shm images are kept for reuse.
func WithPoolSize(n int) Option {
	return func(o *options) { o.poolSize = n }
}

// WithLogger sets the importer logger. Defaults to render.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Importer maps buffers to textures for one render context.
// It is driven from the event loop and is not safe for concurrent use.
type Importer struct {
	ctx     render.Context
	log     *slog.Logger
	formats []render.FormatInfo

	textures map[buffer.ID]*Texture
	retired  map[*Texture]struct{}
	pool     *cache.Pool[poolKey, render.Texture]
	stats    Stats
}

// New creates an importer bound to ctx.
func New(ctx render.Context, opts ...Option) *Importer {
	o := options{poolSize: DefaultPoolSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = render.Logger()
	}
	return &Importer{
		ctx:      ctx,
		log:      o.logger,
		formats:  ctx.Formats(),
		textures: make(map[buffer.ID]*Texture),
		retired:  make(map[*Texture]struct{}),
		pool: cache.NewPool(o.poolSize, func(_ poolKey, img render.Texture) {
			img.Destroy()
		}),
	}
}

// Import returns the texture holding the buffer's current contents,
// uploading or binding it if needed. Importing an unchanged buffer again
// returns the cached texture.
func (im *Importer) Import(b *buffer.Buffer) (*Texture, error) {
	im.stats.Imports++
	cur := im.textures[b.ID()]
	if cur != nil && cur.generation == b.Generation() {
		im.stats.Hits++
		return cur, nil
	}

	var (
		t   *Texture
		err error
	)
	if b.Dmabuf() != nil {
		t, err = im.importDmabuf(b, cur)
	} else {
		t, err = im.importShm(b, cur)
	}
	if err != nil {
		im.stats.Failures++
		im.log.Warn("importer: import failed", "buffer", b.ID(), "err", err)
		return nil, err
	}
	im.textures[b.ID()] = t
	return t, nil
}

func (im *Importer) importShm(b *buffer.Buffer, cur *Texture) (*Texture, error) {
	desc := b.Shm()
	fi, ok := render.FindFormat(im.formats, desc.Format)
	if !ok || !fi.Shm {
		return nil, &ImportError{BufferID: b.ID(), Format: desc.Format, Reason: "unsupported shm format"}
	}

	// Upload in place when no frame samples the current image; otherwise
	// retire it and start from a pooled image of the same geometry.
	inPlace := cur != nil && cur.refs == 0 && !cur.dmabuf
	var old render.Texture
	if inPlace {
		old = cur.image
	} else {
		if cur != nil {
			im.retire(cur)
		}
		if img, ok := im.pool.Take(poolKey{width: int(desc.Width), height: int(desc.Height), format: desc.Format}); ok {
			old = img
		}
	}

	img, err := im.ctx.ImportShm(desc, old)
	if err != nil {
		if old != nil && !inPlace {
			im.pool.Put(keyOf(old), old)
		}
		return nil, &ImportError{BufferID: b.ID(), Format: desc.Format, Reason: "upload failed", Err: err}
	}
	im.stats.Uploads++
	switch {
	case old == nil:
	case img == old:
		im.stats.Reused++
	default:
		im.pool.Put(keyOf(old), old)
	}

	if inPlace {
		cur.image = img
		cur.generation = b.Generation()
		return cur, nil
	}
	im.log.Debug("importer: shm texture created", "buffer", b.ID(), "size", fmt.Sprintf("%dx%d", desc.Width, desc.Height))
	return &Texture{bufferID: b.ID(), image: img, generation: b.Generation()}, nil
}

func keyOf(img render.Texture) poolKey {
	return poolKey{width: img.Width(), height: img.Height(), format: img.Format()}
}

func (im *Importer) importDmabuf(b *buffer.Buffer, cur *Texture) (*Texture, error) {
	desc := b.Dmabuf()
	if cur != nil && cur.dmabuf {
		// The texture binds the client memory directly; new contents
		// need no re-import.
		cur.generation = b.Generation()
		return cur, nil
	}
	if err := im.checkDmabuf(b.ID(), desc); err != nil {
		return nil, err
	}
	img, err := im.ctx.ImportDmabuf(desc)
	if err != nil {
		return nil, &ImportError{
			BufferID: b.ID(), Format: desc.Format, Modifier: desc.Modifier,
			Planes: len(desc.Planes), Reason: "backend rejected buffer", Err: err,
		}
	}
	if cur != nil {
		im.retire(cur)
	}
	im.log.Debug("importer: dmabuf bound", "buffer", b.ID(), "format", desc.Format, "modifier", desc.Modifier)
	return &Texture{bufferID: b.ID(), image: img, generation: b.Generation(), dmabuf: true}, nil
}

func (im *Importer) checkDmabuf(id buffer.ID, desc *buffer.Dmabuf) error {
	fail := func(reason string) error {
		return &ImportError{
			BufferID: id, Format: desc.Format, Modifier: desc.Modifier,
			Planes: len(desc.Planes), Reason: reason,
		}
	}
	fi, ok := render.FindFormat(im.formats, desc.Format)
	if !ok || len(fi.Modifiers) == 0 {
		return fail("unsupported format")
	}
	if len(desc.Planes) != desc.Format.Planes() {
		return fail(fmt.Sprintf("format needs %d planes", desc.Format.Planes()))
	}
	if !fi.SupportsModifier(desc.Modifier) {
		return fail("unsupported modifier")
	}
	return nil
}

// Lookup returns the cached texture for a buffer.
func (im *Importer) Lookup(id buffer.ID) (*Texture, bool) {
	t, ok := im.textures[id]
	return t, ok
}

// Ref marks t as sampled by one more in-flight frame.
func (im *Importer) Ref(t *Texture) {
	t.refs++
}

// Unref drops one in-flight frame reference and frees the texture if it
// was retired and this was the last reference.
func (im *Importer) Unref(t *Texture) {
	if t.refs > 0 {
		t.refs--
	}
	if t.refs == 0 && t.retired {
		im.free(t)
	}
}

// Forget drops the cached texture of a destroyed buffer. The texture is
// freed now, or when the last in-flight frame using it completes.
func (im *Importer) Forget(id buffer.ID) {
	t, ok := im.textures[id]
	if !ok {
		return
	}
	im.retire(t)
	if t.refs == 0 {
		im.free(t)
	}
}

// retire detaches t from its buffer entry. Frames holding it see it as
// stale from now on.
func (im *Importer) retire(t *Texture) {
	if im.textures[t.bufferID] == t {
		delete(im.textures, t.bufferID)
	}
	if t.retired {
		return
	}
	t.retired = true
	if t.refs > 0 {
		im.retired[t] = struct{}{}
	}
}

func (im *Importer) free(t *Texture) {
	if t.freed {
		return
	}
	t.freed = true
	delete(im.retired, t)
	if t.dmabuf {
		t.image.Destroy()
		return
	}
	im.pool.Put(keyOf(t.image), t.image)
}

// Stats returns importer counters.
func (im *Importer) Stats() Stats {
	s := im.stats
	s.Live = len(im.textures)
	s.Retired = len(im.retired)
	s.Pool = im.pool.Stats()
	return s
}

// Close frees every texture, including ones still referenced.
func (im *Importer) Close() {
	for _, t := range im.textures {
		t.retired = true
		im.free(t)
	}
	for t := range im.retired {
		im.free(t)
	}
	clear(im.textures)
	im.pool.Clear()
}
