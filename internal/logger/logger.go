package logger

import (
	"fmt"
	"time"
)

// ANSI color codes for console output.
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func logLine(color, level, tag, msg string) {
	ts := time.Now().Format("15:04:05")
	fmt.Printf("%s%s%s %s%-5s%s %s[%s]%s %s\n",
		colorGray, ts, colorReset,
		color, level, colorReset,
		colorBold, tag, colorReset,
		msg)
}

// Info logs an informational message with a component tag.
func Info(tag, msg string) {
	logLine(colorCyan, "INFO", tag, msg)
}

// Success logs a success message.
func Success(tag, msg string) {
	logLine(colorGreen, "OK", tag, msg)
}

// Warn logs a warning.
func Warn(tag, msg string) {
	logLine(colorYellow, "WARN", tag, msg)
}

// Error logs an error.
func Error(tag, msg string) {
	logLine(colorRed, "ERROR", tag, msg)
}

// Banner prints the startup banner with the build version.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Printf("%s%s\n", colorBold, colorCyan)
	fmt.Println("  ┌─────────────────────────────────────┐")
	fmt.Println("  │   sales-market-discovery engine     │")
	fmt.Printf("  │   version %-26s│\n", version)
	fmt.Println("  └─────────────────────────────────────┘")
	fmt.Print(colorReset)
}

// Server logs the listen address once the HTTP server is up.
func Server(addr string) {
	Success("Server", fmt.Sprintf("Listening on http://%s", addr))
}
