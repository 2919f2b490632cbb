package tgbot

import (
	"io"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SecretToken is a string type that redacts itself in logs and string output.
// Use this for sensitive values like the bot token.
type SecretToken string

// LogValue implements slog.LogValuer to redact the token in logs.
func (SecretToken) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// String returns "[REDACTED]" to prevent accidental exposure in fmt output.
func (SecretToken) String() string {
	return "[REDACTED]"
}

// Value returns the actual secret value. Use sparingly and never log the result.
func (t SecretToken) Value() string {
	return string(t)
}

// Bot tokens look like "123456789:ABCdefGHI...".
var botTokenPattern = regexp.MustCompile(`^\d+:[\w-]+$`)

// ValidateBotToken checks the token format without revealing the token.
func ValidateBotToken(token SecretToken) error {
	if token == "" {
		return ErrBotTokenRequired
	}
	if !botTokenPattern.MatchString(token.Value()) {
		return ErrInvalidBotToken
	}
	return nil
}

// NewLogger creates a structured JSON logger. Logs go to stdout and, when a
// file path is given, also to a size-rotated log file.
func NewLogger(level slog.Level, logFilePath string) *slog.Logger {
	var logOutput io.Writer = os.Stdout

	if logFilePath != "" {
		logOutput = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	return slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	}))
}
