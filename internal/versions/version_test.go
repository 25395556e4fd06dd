package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionInfo(t *testing.T) {
	t.Parallel()

	noVCS := func() (string, string) { return "", "" }
	withVCS := func() (string, string) { return "0123456789abcdef", "2025-03-01T10:00:00Z" }

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
		vcs       func() (string, string)
		want      VersionInfo
	}{
		{
			name:      "release build",
			version:   "v1.2.0",
			commit:    "abc",
			buildDate: "2025-01-15T10:30:00Z",
			vcs:       withVCS,
			want:      VersionInfo{Version: "v1.2.0", Commit: "abc", BuildDate: "2025-01-15 10:30:00 UTC"},
		},
		{
			name:      "dev build from vcs",
			version:   "dev",
			commit:    unknownStr,
			buildDate: unknownStr,
			vcs:       withVCS,
			want:      VersionInfo{Version: "build-01234567", Commit: "0123456789abcdef", BuildDate: "2025-03-01 10:00:00 UTC"},
		},
		{
			name:      "dev build without vcs",
			version:   "dev",
			commit:    unknownStr,
			buildDate: unknownStr,
			vcs:       noVCS,
			want:      VersionInfo{Version: "dev", Commit: unknownStr, BuildDate: unknownStr},
		},
		{
			name:      "unparsable date kept",
			version:   "v0.1.0",
			commit:    "c",
			buildDate: "yesterday",
			vcs:       noVCS,
			want:      VersionInfo{Version: "v0.1.0", Commit: "c", BuildDate: "yesterday"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := versionInfo(tt.version, tt.commit, tt.buildDate, tt.vcs)
			tt.want.GoVersion = runtime.Version()
			tt.want.Platform = runtime.GOOS + "/" + runtime.GOARCH
			assert.Equal(t, tt.want, got)
		})
	}
}
