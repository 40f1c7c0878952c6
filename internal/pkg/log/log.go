package log

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

var debugEnabled atomic.Bool

// SetDebug toggles Debug and Dump output. Off by default.
func SetDebug(on bool) { debugEnabled.Store(on) }

var (
	infoTag  = color.New(color.FgWhite, color.BgGreen).Sprint("[INFO] ")
	warnTag  = color.New(color.FgBlack, color.BgYellow).Sprint("[WARN] ")
	errorTag = color.New(color.FgRed).Sprint("[ERROR]")
	debugTag = color.New(color.FgCyan).Sprint("[DEBUG]")
)

func emit(w *os.File, tag, format string, a ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", tag, fmt.Sprintf(format, a...))
}

// Info reports normal operation.
func Info(format string, a ...interface{}) { emit(os.Stdout, infoTag, format, a...) }

// Warn reports conditions the server survives, like shed frames or
// repaired counter drift.
func Warn(format string, a ...interface{}) { emit(os.Stdout, warnTag, format, a...) }

// Error reports failures.
func Error(format string, a ...interface{}) { emit(os.Stderr, errorTag, format, a...) }

// Debug reports detail; silent unless SetDebug(true).
func Debug(format string, a ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	emit(os.Stdout, debugTag, format, a...)
}

// Dump pretty-prints values for debugging; silent unless SetDebug(true).
func Dump(a ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	fmt.Fprint(os.Stdout, spew.Sdump(a...))
}
