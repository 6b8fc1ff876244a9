package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KamikazeJones/tiny-bytecode/vm"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    *Config
		wantErr bool
	}{
		{
			name: "empty uses defaults",
			data: "",
			want: &Config{
				MaxSteps: vm.DefaultStepLimit,
				Log:      Log{Level: "info"},
				Server: Server{
					Listen:   ":8080",
					MaxBody:  "64K",
					MaxSteps: vm.DefaultStepLimit,
				},
			},
		},
		{
			name: "full",
			data: `
max_steps = 500
stack_depth = 64

[log]
level = "debug"
development = true

[server]
listen = "127.0.0.1:9000"
max_body = "1M"
max_steps = 100
`,
			want: &Config{
				MaxSteps:   500,
				StackDepth: 64,
				Log:        Log{Level: "debug", Development: true},
				Server: Server{
					Listen:   "127.0.0.1:9000",
					MaxBody:  "1M",
					MaxSteps: 100,
				},
			},
		},
		{
			name: "server ceiling follows run ceiling",
			data: "max_steps = 42",
			want: &Config{
				MaxSteps: 42,
				Log:      Log{Level: "info"},
				Server: Server{
					Listen:   ":8080",
					MaxBody:  "64K",
					MaxSteps: 42,
				},
			},
		},
		{
			name:    "negative steps",
			data:    "max_steps = -1",
			wantErr: true,
		},
		{
			name:    "negative depth",
			data:    "stack_depth = -1",
			wantErr: true,
		},
		{
			name:    "bad level",
			data:    "[log]\nlevel = \"loud\"",
			wantErr: true,
		},
		{
			name:    "unknown key",
			data:    "max_stpes = 10",
			wantErr: true,
		},
		{
			name:    "not toml",
			data:    "max_steps = = 1",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	got, err := Load(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), got)

	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("max_steps = 7\n"), 0o644))
	got, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, got.MaxSteps)
}

func TestConfig_VMOpts(t *testing.T) {
	c, err := Parse("max_steps = 3\nstack_depth = 1")
	require.NoError(t, err)

	m := vm.NewVM(append(c.VMOpts(), vm.LoggerOpt(zap.NewNop()))...)
	require.NoError(t, m.Load(":a $a $a"))
	assert.ErrorIs(t, m.Run(context.Background(), 0), vm.ErrStackOverflow)
}

func TestConfig_Logger(t *testing.T) {
	c := Default()
	c.Log.Level = "warn"
	l, err := c.Logger()
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))
}
