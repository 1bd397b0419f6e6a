package dev

import (
	"path/filepath"

	"github.com/vango-dev/spool/internal/config"
)

// CollectWatchPaths returns the paths whose changes require document to be
// rendered again: the document, the config file and the configured extra
// paths, cleaned and without duplicates.
func CollectWatchPaths(cfg *config.Config, document string) []string {
	paths := []string{document}
	if cfg.Path() != "" {
		paths = append(paths, cfg.Path())
	}
	paths = append(paths, cfg.WatchPaths()...)

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}

	return unique
}
