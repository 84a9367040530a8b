// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package importer

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor/buffer"
)

// ErrImportFailed is wrapped by every import error.
var ErrImportFailed = errors.New("importer: import failed")

// ImportError describes a rejected buffer.
type ImportError struct {
	BufferID buffer.ID
	Format   buffer.Format
	Modifier buffer.Modifier
	Planes   int
	Reason   string
	Err      error
}

func (e *ImportError) Error() string {
	msg := fmt.Sprintf("importer: buffer %d (%v", e.BufferID, e.Format)
	if e.Planes > 0 {
		msg += fmt.Sprintf(", modifier %v, %d planes", e.Modifier, e.Planes)
	}
	msg += "): " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the backend error, if any, alongside ErrImportFailed.
func (e *ImportError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrImportFailed, e.Err}
	}
	return []error{ErrImportFailed}
}
