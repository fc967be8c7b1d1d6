package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "qwen2.5:3b", cfg.Model)
	assert.Equal(t, 5, cfg.MaxTags)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(
		WithHost("http://gpu:8000/v1"),
		WithModel("llama3.1:8b"),
		WithToken("secret"),
		WithMaxTags(3),
	)

	assert.Equal(t, "http://gpu:8000/v1", cfg.Host)
	assert.Equal(t, "llama3.1:8b", cfg.Model)
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, 3, cfg.MaxTags)
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"already has /v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing /v1", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"empty host", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Host: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
			assert.Equal(t, "none", cfg.Token)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOption
		wantErr bool
	}{
		{"defaults", nil, false},
		{"missing host", []ConfigOption{WithHost("")}, true},
		{"missing model", []ConfigOption{WithModel("")}, true},
		{"zero tags", []ConfigOption{WithMaxTags(0)}, true},
		{"too many tags", []ConfigOption{WithMaxTags(21)}, true},
		{"host normalized", []ConfigOption{WithHost("http://x:1")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opts...).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFunc(t *testing.T) {
	var c Classifier = Func(func(ctx context.Context, text string) (*Result, error) {
		if text == "" {
			return nil, errors.New("empty")
		}
		return &Result{CleanedText: text, Tags: []string{"x"}}, nil
	})

	res, err := c.Classify(context.Background(), "boom")
	require.NoError(t, err)
	assert.Equal(t, "boom", res.CleanedText)

	_, err = c.Classify(context.Background(), "")
	assert.Error(t, err)
}
