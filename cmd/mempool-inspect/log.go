// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
	"github.com/talerone/superbitcoin/mempool"
)

// logWriter writes to stdout and, when --logfile set one up, to the
// rotator, matching the teacher's own internal/log/log.go logWriter.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var (
	backendLog = btclog.NewBackend(logWriter{})
	logRotator *rotator.Rotator

	mpstLog = backendLog.Logger("MPST")
)

func init() {
	mempool.UseLogger(mpstLog)
}

// initLogRotator initializes the log rotator to write to logFile,
// creating roll files alongside it, following
// internal/log/log.go's InitLogRotator.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	logRotator = r
	return nil
}

func setLogLevel(levelStr string) {
	level, _ := btclog.LevelFromString(levelStr)
	mpstLog.SetLevel(level)
}
