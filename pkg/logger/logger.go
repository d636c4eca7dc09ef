// Package logger wraps log/slog with a filtering handler that suppresses
// third-party library noise unless the process is running at debug level.
package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

var defaultLogger *slog.Logger

const modulePackagePrefix = "github.com/lzrong0203/newsspark"

// ParseLevel converts a string log level to slog.Level. Unknown values fall
// back to warn, matching the rest of the config package's tolerant defaults.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, nil
	}
}

// AdapterComponent tags every source adapter's fetch logging. Scraper
// adapters run in a tight retry loop against many feeds/boards/platforms
// and are the single largest source of log volume in the service; they
// get their own noise floor rather than sharing the blanket
// own-package/third-party split below.
const AdapterComponent = "adapter"

// componentFloor is the level below which a log tagged with that
// "component" attr is dropped, even though it originates from this
// module's own code and the own-package rule below would otherwise let
// it through. Each entry reflects a component's expected call volume,
// not how important its output is.
var componentFloor = map[string]slog.Level{
	AdapterComponent: slog.LevelWarn,
}

// filteringHandler suppresses two kinds of noise unless the configured
// level is debug: logs from components in componentFloor below that
// component's floor, and logs from outside this module's own packages
// entirely (third-party library chatter).
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level

	// withAttrs accumulates attrs attached via Logger.With, which slog
	// routes through WithAttrs rather than attaching to each Record — so
	// a "component" tag set once on a derived logger must be carried here
	// to be visible to Handle.
	withAttrs []slog.Attr
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.minLevel {
		return false
	}
	return h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug {
		return h.handler.Handle(ctx, record)
	}
	if floor, tagged := h.componentOf(record); tagged {
		if record.Level < floor {
			return nil
		}
		return h.handler.Handle(ctx, record)
	}
	if h.isOwnPackage(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

// componentOf reports the log-noise floor for a "component" attr, if one
// is recognized in componentFloor — checking both h.withAttrs (set via
// Logger.With) and record.Attrs (set directly on the log call), since
// either can carry the tag.
func (h *filteringHandler) componentOf(record slog.Record) (slog.Level, bool) {
	for _, a := range h.withAttrs {
		if a.Key == "component" {
			if floor, ok := componentFloor[a.Value.String()]; ok {
				return floor, true
			}
		}
	}
	var floor slog.Level
	var found bool
	record.Attrs(func(a slog.Attr) bool {
		if a.Key != "component" {
			return true
		}
		floor, found = componentFloor[a.Value.String()]
		return false
	})
	return floor, found
}

func (h *filteringHandler) isOwnPackage(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	fullName := fn.Name()
	file, _ := fn.FileLine(pc)
	return strings.Contains(fullName, modulePackagePrefix) || strings.Contains(file, "newsspark/")
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{
		handler:   h.handler.WithAttrs(attrs),
		minLevel:  h.minLevel,
		withAttrs: append(append([]slog.Attr{}, h.withAttrs...), attrs...),
	}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel, withAttrs: h.withAttrs}
}

// Init installs the process-wide default logger at the given level, writing
// JSON records to output. JSON (rather than hector's colored text format) is
// used because the memory-service HTTP surface and scraper workers both run
// as unattended processes whose logs are expected to be machine-parsed.
func Init(level slog.Level, output *os.File) {
	opts := &slog.HandlerOptions{Level: level}
	base := slog.NewJSONHandler(output, opts)
	defaultLogger = slog.New(&filteringHandler{handler: base, minLevel: level})
	slog.SetDefault(defaultLogger)
}

// Get returns the process-wide default logger, initializing it at warn
// level to stderr if Init hasn't been called yet.
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init(slog.LevelWarn, os.Stderr)
	}
	return defaultLogger
}
