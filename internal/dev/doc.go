// Package dev watches documents and their inputs for `spool render --watch`.
//
// A Watcher uses fsnotify to follow files and directory trees. Changes are
// debounced: the callback runs after the configured quiet period, once for
// each kind of change (document, config, asset) in the batch.
//
//	w := dev.NewWatcher(dev.WatcherConfig{
//	    Paths:    dev.CollectWatchPaths(cfg, "site/index.yaml"),
//	    Debounce: cfg.DebounceInterval(),
//	})
//	w.OnChange(func(c dev.Change) { rerender() })
//	err := w.Start(ctx)
package dev
