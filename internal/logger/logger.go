// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger provides the process-wide structured logger.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Fields carries structured context for a log entry.
type Fields = logrus.Fields

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Init sets the log level ("debug", "info", "warn", "error").
func Init(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func entry(fields []Fields) *logrus.Entry {
	e := logrus.NewEntry(log)
	for _, f := range fields {
		e = e.WithFields(f)
	}
	return e
}

func Debug(msg string, fields ...Fields) {
	entry(fields).Debug(msg)
}

func Info(msg string, fields ...Fields) {
	entry(fields).Info(msg)
}

func Warn(msg string, fields ...Fields) {
	entry(fields).Warn(msg)
}

// Error logs msg with err attached.
func Error(msg string, err error, fields ...Fields) {
	entry(fields).WithError(err).Error(msg)
}
