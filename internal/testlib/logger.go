// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package testlib holds helpers shared by tests across packages.
package testlib

import (
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// MakeLogger creates a log.FieldLogger that routes to tb.Log.
func MakeLogger(tb testing.TB) log.FieldLogger {
	return newLogger(tb)
}

// MakeLoggerWithHook is MakeLogger plus a hook capturing every entry.
func MakeLoggerWithHook(tb testing.TB) (log.FieldLogger, *test.Hook) {
	logger := newLogger(tb)
	return logger, test.NewLocal(logger)
}

func newLogger(tb testing.TB) *log.Logger {
	logger := log.New()
	logger.SetOutput(&testingWriter{tb})
	logger.SetLevel(log.TraceLevel)

	return logger
}

// testingWriter is an io.Writer that writes through t.Log.
type testingWriter struct {
	tb testing.TB
}

func (tw *testingWriter) Write(b []byte) (int, error) {
	tw.tb.Log(strings.TrimSpace(string(b)))
	return len(b), nil
}
