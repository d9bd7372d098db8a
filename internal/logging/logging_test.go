package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		wantLevel     zapcore.Level
		wantErr       bool
	}{
		{level: "", format: "", wantLevel: zapcore.InfoLevel},
		{level: "debug", format: "console", wantLevel: zapcore.DebugLevel},
		{level: "warn", format: "JSON", wantLevel: zapcore.WarnLevel},
		{level: "loud", format: "console", wantErr: true},
		{level: "info", format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		log, err := New(tt.level, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q, %q) err = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if !log.Core().Enabled(tt.wantLevel) || log.Core().Enabled(tt.wantLevel-1) {
			t.Errorf("New(%q, %q) not at level %v", tt.level, tt.format, tt.wantLevel)
		}
	}
}
