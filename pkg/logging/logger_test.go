package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}

	if cfg.Pretty != false {
		t.Error("Expected default pretty to be false")
	}
}

func TestSetup(t *testing.T) {
	// Each case logs one event at its threshold and one just below it.
	tests := []struct {
		level LogLevel
		emit  func(l zerolog.Logger)
		below func(l zerolog.Logger)
		want  string
	}{
		{
			level: LevelDebug,
			emit:  func(l zerolog.Logger) { l.Debug().Str("product_id", "1").Msg("Cache hit") },
			want:  "Cache hit",
		},
		{
			level: LevelInfo,
			emit:  func(l zerolog.Logger) { l.Info().Int("batch", 3).Msg("Batch persisted") },
			below: func(l zerolog.Logger) { l.Debug().Msg("Worker started") },
			want:  "Batch persisted",
		},
		{
			level: LevelWarn,
			emit:  func(l zerolog.Logger) { l.Warn().Str("error_class", "server").Msg("Retries exhausted") },
			below: func(l zerolog.Logger) { l.Info().Msg("Loaded identifiers") },
			want:  "Retries exhausted",
		},
		{
			level: LevelError,
			emit:  func(l zerolog.Logger) { l.Error().Msg("Checkpoint save failed") },
			below: func(l zerolog.Logger) { l.Warn().Msg("Fetch attempt failed") },
			want:  "Checkpoint save failed",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			if tt.below != nil {
				tt.below(logger)
				if buf.Len() != 0 {
					t.Errorf("event below %s was logged: %q", tt.level, buf.String())
				}
			}

			tt.emit(logger)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"warning", zerolog.WarnLevel},
		{"invalid", zerolog.InfoLevel}, // Should default to Info
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: buf,
	})

	logger := NewLogger(ComponentCollector)
	logger.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, `"component":"collector"`) {
		t.Errorf("Expected output to contain the component field, got %q", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got %q", output)
	}
}

func TestSetup_NilOutput(t *testing.T) {
	Setup(Config{Level: LevelInfo})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("global level = %v, want info", zerolog.GlobalLevel())
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger.Info().Str("product_id", "42").Msg("pretty message")

	output := buf.String()
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("expected console output, got JSON: %q", output)
	}
	if !strings.Contains(output, "pretty message") || !strings.Contains(output, "42") {
		t.Errorf("expected field in console output, got %q", output)
	}
}

func TestNewLogger_InheritsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger(ComponentSink)
	logger.Info().Msg("Batch persisted")
	logger.Warn().Str("file", "http_error.csv").Msg("Slow append")

	output := buf.String()
	if strings.Contains(output, "Batch persisted") {
		t.Error("info event should be filtered at warn level")
	}
	if !strings.Contains(output, `"component":"sink"`) || !strings.Contains(output, "Slow append") {
		t.Errorf("expected warn event with component, got %q", output)
	}
}
