package gemini

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// cacheRefresher periodically regenerates every cacheable Dynamic
// leaf's content ahead of any request for it, so a request against a
// cached entry only ever has to read a file.
type cacheRefresher struct {
	tree     *UrlTree
	executor *Executor
	dir      string
	logger   *zap.Logger
}

func newCacheRefresher(tree *UrlTree, executor *Executor, dir string, logger *zap.Logger) *cacheRefresher {
	return &cacheRefresher{tree: tree, executor: executor, dir: dir, logger: logger}
}

func (c *cacheRefresher) refreshAll() {
	for _, root := range c.tree.Roots {
		for _, leaf := range cacheableDynamicLeaves(root) {
			dyn := leaf.Data.MetaData.(*DynamicObject)
			body, err := c.executor.Run(dyn, nil, nil)
			if err != nil {
				c.logger.Warn("failed to cache dynamic content",
					zap.String("link_path", dyn.LinkPath), zap.Error(err))
				continue
			}
			path := filepath.Join(c.dir, hashFileName(dyn))
			if err := os.WriteFile(path, body, 0o644); err != nil {
				c.logger.Warn("failed to write cache file", zap.String("path", path), zap.Error(err))
			}
		}
	}
}

func cacheableDynamicLeaves(node *UrlNode) []*UrlNode {
	var out []*UrlNode
	for _, child := range node.Children {
		if len(child.Children) != 0 {
			out = append(out, cacheableDynamicLeaves(child)...)
			continue
		}
		if child.Data == nil {
			continue
		}
		if dyn, ok := child.Data.MetaData.(*DynamicObject); ok && dyn.Cache {
			out = append(out, child)
		}
	}
	return out
}

// run refreshes once immediately, then every interval, until stop is
// closed. Call as its own goroutine.
func (c *cacheRefresher) run(interval time.Duration, stop <-chan struct{}) {
	c.refreshAll()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.refreshAll()
		case <-stop:
			return
		}
	}
}

// readCached reads a Dynamic leaf's content-addressed cache entry,
// falling back to a live invocation (without query or certificate, the
// same as a cache refresh) when no cache entry exists yet.
func readCached(dyn *DynamicObject, dir string, executor *Executor) ([]byte, error) {
	path := filepath.Join(dir, hashFileName(dyn))
	if body, err := os.ReadFile(path); err == nil {
		return body, nil
	}
	return executor.Run(dyn, nil, nil)
}
