package engine

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/blake3"
)

// mandatoryArtifacts are never excluded by an ArtifactPolicy (spec §6).
var mandatoryArtifacts = map[string]bool{
	"prompt.md":   true,
	"response.md": true,
	"status.json": true,
}

// excluded reports whether relPath (relative to the node's log directory)
// matches one of the policy's exclude globs, unless it is a mandatory file.
func (p ArtifactPolicy) excluded(relPath string) bool {
	if mandatoryArtifacts[relPath] {
		return false
	}
	for _, pattern := range p.ExcludeGlobs {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

// writeArtifact writes content to <dir>/<name>, honoring the artifact
// exclusion policy, creating dir if necessary.
func writeArtifact(dir, name string, content []byte, policy ArtifactPolicy) error {
	if policy.excluded(name) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), content, 0o644)
}

// checksum returns the blake3 hex digest of content, used to fingerprint
// the final run-summary artifact.
func checksum(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}
