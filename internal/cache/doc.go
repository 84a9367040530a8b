// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package cache provides a bounded LRU pool of reusable values.
//
// A Pool holds idle values grouped by key, such as GPU images grouped by
// size and format. Take hands out the most recently returned value for a
// key; Put returns one. When the pool exceeds its capacity the least
// recently returned value is evicted and passed to the eviction callback,
// which typically destroys it.
//
//	pool := cache.NewPool[imageKey, *Image](8, func(_ imageKey, img *Image) {
//	    img.Destroy()
//	})
//	pool.Put(key, img)
//	img, ok := pool.Take(key)
//
// Pool is not safe for concurrent use.
package cache
