package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGinMode(t *testing.T) {
	tests := map[string]string{
		"production":  "release",
		"prod":        "release",
		"development": "debug",
		"dev":         "debug",
		"test":        "test",
		"":            "debug",
	}
	for env, want := range tests {
		assert.Equal(t, want, GinMode(env), env)
	}
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("ENV", "")
	assert.Equal(t, "development", ResolveEnv("development"))

	t.Setenv("ENV", "production")
	assert.Equal(t, "production", ResolveEnv("development"))
}
