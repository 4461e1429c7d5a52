package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKeyBuilder_Prefix(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		expected    string
	}{
		{name: "production", environment: "production", expected: "prod"},
		{name: "development", environment: "development", expected: "staging"},
		{name: "staging", environment: "staging", expected: "staging"},
		{name: "test", environment: "test", expected: "staging"},
		{name: "unknown defaults to prod", environment: "something", expected: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			assert.Equal(t, tt.expected, kb.GetPrefix())
		})
	}
}

func TestKeyBuilder_TrafficKeys(t *testing.T) {
	kb := NewKeyBuilder("production")

	assert.Equal(t, "prod:traffic:report:octocat:hello-world", kb.KeyTrafficReport("octocat", "hello-world"))
	assert.Equal(t, "prod:traffic:repo:octocat:hello-world", kb.KeyRepoInfo("octocat", "hello-world"))
}

func TestKeyBuilder_Custom(t *testing.T) {
	kb := NewKeyBuilder("staging")

	assert.Equal(t, "staging:traffic:etag:abc", kb.KeyCustom("traffic:etag:%s", "abc"))
}
