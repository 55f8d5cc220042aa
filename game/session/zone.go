package session

import (
	"path/filepath"
	"strings"
)

var zoneByExt = map[string]string{
	"js": "forest", "ts": "forest", "jsx": "forest", "tsx": "forest", "py": "forest", "java": "forest",
	"cpp": "forest", "c": "forest", "cs": "forest", "go": "forest", "rs": "forest",
	"test": "laboratory", "spec": "laboratory",
	"md": "library", "txt": "library", "doc": "library", "pdf": "library",
	"json": "cave", "yaml": "cave", "yml": "cave", "toml": "cave", "xml": "cave", "config": "cave",
	"css": "garden", "scss": "garden", "sass": "garden", "less": "garden", "html": "garden",
	"sql": "ocean", "db": "ocean", "sqlite": "ocean",
}

// ZoneForFile maps an edited file to the zone it belongs to. Test files
// (foo.test.ts, foo_test.go, bar.spec.js) go to the laboratory; everything
// unknown goes to the forest.
func ZoneForFile(name string) string {
	base := strings.ToLower(filepath.Base(name))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if strings.HasSuffix(stem, ".test") || strings.HasSuffix(stem, ".spec") || strings.HasSuffix(stem, "_test") {
		return "laboratory"
	}
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	if z, ok := zoneByExt[ext]; ok {
		return z
	}
	return "forest"
}
