package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// CrashLogDir is where crash reports are written. Empty means the logs
// directory next to the executable.
var CrashLogDir = ""

// WriteCrashFile writes a crash report with every goroutine's stack and
// returns its path, or "" when the report only reached stderr.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	var report bytes.Buffer
	report.WriteString("=== FINQUERY CRASH REPORT ===\n")
	report.WriteString(fmt.Sprintf("Time: %s\n", time.Now().Format(time.RFC3339)))
	report.WriteString(fmt.Sprintf("Version: %s\n\n", GetFullVersion()))
	report.WriteString(fmt.Sprintf("=== PANIC VALUE ===\n%v\n\n", panicVal))
	report.WriteString(fmt.Sprintf("=== STACK TRACE ===\n%s\n", stackTrace))
	report.WriteString(fmt.Sprintf("=== ALL GOROUTINES ===\n%s\n", allGoroutineStacks()))
	report.WriteString(fmt.Sprintf("=== SYSTEM INFO ===\nNumGoroutine: %d\nGOOS: %s\nGOARCH: %s\n",
		runtime.NumGoroutine(), runtime.GOOS, runtime.GOARCH))

	dir := CrashLogDir
	if dir == "" {
		var err error
		if dir, err = logsDirectory(); err != nil {
			dir = "logs"
		}
	}
	crashPath := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05")))

	if err := os.MkdirAll(dir, 0755); err == nil {
		err = os.WriteFile(crashPath, report.Bytes(), 0644)
		if err == nil {
			fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - Report saved to: %s !!!\nPanic: %v\n", crashPath, panicVal)
			return crashPath
		}
	}

	fmt.Fprintf(os.Stderr, "CRASH: failed to write crash file\n%s", report.String())
	return ""
}

func allGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= 16*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}

// RecoverWithCrashFile writes a crash report for a panic and exits.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, GetStackTrace())
		os.Exit(1)
	}
}
