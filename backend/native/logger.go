// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"log/slog"

	"github.com/gogpu/morph/backend"
)

// slogger returns the logger shared with package backend.
func slogger() *slog.Logger { return backend.Logger() }
