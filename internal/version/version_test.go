package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionStrings(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = oldV, oldC, oldD })

	Version, Commit, BuildDate = "v0.3.0", "abc1234", "2026-01-02"

	assert.Equal(t, "v0.3.0 (abc1234)", String())
	assert.Equal(t, "v0.3.0 (commit: abc1234, built: 2026-01-02, "+runtime.Version()+")", Full())
	assert.Equal(t, "todo-e2e/v0.3.0", UserAgent())
	assert.Equal(t, Info{Version: "v0.3.0", Commit: "abc1234", BuildDate: "2026-01-02", GoVersion: runtime.Version()}, GetInfo())
}
