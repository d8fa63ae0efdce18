// Package logging configures the process logger and the daily JSON error log.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
)

// Logger is the shared process logger. Commands log through this instance so
// the daily-file hook sees every error exactly once.
var Logger = logrus.New()

// Verbose controls whether stack traces from wrapped causes are printed.
var Verbose bool

// SetupLogging configures log level and formatting based on debug settings.
func SetupLogging(debug bool) {
	Logger.SetOutput(os.Stderr)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	if debug {
		Logger.SetLevel(logrus.DebugLevel)
		Logger.Debug("Debug logging enabled")
	} else {
		Logger.SetLevel(logrus.InfoLevel)
	}
}

// AttachDailyErrorLog registers a hook appending structured error envelopes
// to one JSON-lines file per day under dir. The directory is created lazily
// on the first write so a read-only invocation leaves no artifacts.
func AttachDailyErrorLog(dir string) {
	Logger.AddHook(&dailyFileHook{dir: dir})
}

// dailyFileHook appends error-level entries to logs/<YYYY-MM-DD>.log.
type dailyFileHook struct {
	dir string
	mu  sync.Mutex
}

func (h *dailyFileHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel, logrus.WarnLevel}
}

func (h *dailyFileHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(h.dir, entry.Time.Format("2006-01-02")+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := (&logrus.JSONFormatter{TimestampFormat: time.RFC3339}).Format(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(line)
	return err
}

var (
	iconCritical = color.New(color.FgRed, color.Bold)
	iconHigh     = color.New(color.FgRed)
	iconMedium   = color.New(color.FgYellow)
	iconLow      = color.New(color.FgCyan)
)

// ReportError prints a classified error with a severity icon and its
// suggestions, and appends a structured envelope to the daily log.
func ReportError(err error) {
	classified := dberrors.Classify(err)
	if classified == nil {
		return
	}

	printer := iconMedium
	icon := "⚠"
	switch classified.Severity {
	case dberrors.SeverityCritical:
		printer, icon = iconCritical, "✖"
	case dberrors.SeverityHigh:
		printer, icon = iconHigh, "✖"
	case dberrors.SeverityLow:
		printer, icon = iconLow, "ℹ"
	}

	printer.Fprintf(os.Stderr, "%s %s\n", icon, classified.Message)
	for _, s := range classified.Suggestions {
		fmt.Fprintf(os.Stderr, "  → %s\n", s)
	}
	if Verbose && classified.Cause != nil {
		fmt.Fprintf(os.Stderr, "  caused by: %+v\n", classified.Cause)
	}

	fields := logrus.Fields{
		"type":     string(classified.Kind),
		"severity": string(classified.Severity),
	}
	if classified.Code != "" {
		fields["code"] = classified.Code
	}
	for k, v := range classified.Context {
		fields["ctx_"+k] = v
	}
	if classified.Cause != nil {
		fields["stack"] = fmt.Sprintf("%+v", classified.Cause)
	}
	Logger.WithFields(fields).Error(classified.Message)
}
