package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Run("Should prefer values injected at build time", func(t *testing.T) {
		oldVersion, oldCommit, oldDate := Version, CommitHash, BuildDate
		t.Cleanup(func() { Version, CommitHash, BuildDate = oldVersion, oldCommit, oldDate })
		Version, CommitHash, BuildDate = "v1.2.3", "0123456789abcdef", "2025-01-01T00:00:00Z"
		info := Get()
		assert.Equal(t, Info{Version: "v1.2.3", CommitHash: "0123456789abcdef", BuildDate: "2025-01-01T00:00:00Z"}, info)
		assert.Equal(t, "v1.2.3 (commit 0123456789ab, built 2025-01-01T00:00:00Z)", info.String())
	})
	t.Run("Should never return empty fields", func(t *testing.T) {
		info := Get()
		assert.NotEmpty(t, info.Version)
		assert.NotEmpty(t, info.CommitHash)
		assert.NotEmpty(t, info.BuildDate)
	})
}
