package commands

import (
	"strings"
	"testing"
)

func TestCompletionCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "bash completion",
			args:    []string{"completion", "bash"},
			wantErr: false,
		},
		{
			name:    "zsh completion",
			args:    []string{"completion", "zsh"},
			wantErr: false,
		},
		{
			name:    "fish completion",
			args:    []string{"completion", "fish"},
			wantErr: false,
		},
		{
			name:    "powershell completion",
			args:    []string{"completion", "powershell"},
			wantErr: false,
		},
		{
			name:    "invalid shell",
			args:    []string{"completion", "invalid"},
			wantErr: true,
		},
		{
			name:    "no shell specified",
			args:    []string{"completion"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)

			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !strings.Contains(out, "tilemm") {
				t.Errorf("completion script does not mention tilemm")
			}
		})
	}
}

func TestFlagCompletions(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		wantVals []string
	}{
		{
			name:     "fill patterns",
			flag:     "--fill-a",
			wantVals: []string{"identity", "ramp", "stripes7", "uniform", "zeros"},
		},
		{
			name:     "references",
			flag:     "--reference",
			wantVals: []string{"naive", "blas", "none"},
		},
		{
			name:     "log levels",
			flag:     "--log-level",
			wantVals: []string{"debug", "info", "warn", "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, "__complete", "dense", tt.flag, "")
			if err != nil {
				t.Fatalf("__complete failed: %v", err)
			}

			for _, want := range tt.wantVals {
				if !strings.Contains(out, want+"\n") {
					t.Errorf("expected completion %q in:\n%s", want, out)
				}
			}
		})
	}
}
