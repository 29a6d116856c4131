package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/mirror"
)

const cacheFileName = "watch-templates.json"

// FileCache persists the last received mirror so the watch surface can show
// templates while the phone is unreachable.
type FileCache struct {
	path   string
	codec  mirror.Codec
	logger *slog.Logger

	mu sync.Mutex
}

func NewFileCache(baseDir string, logger *slog.Logger) (*FileCache, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{path: filepath.Join(baseDir, cacheFileName), logger: logger}, nil
}

// Load returns the cached mirror. Missing or corrupt cache yields an empty
// list; there is no other recovery path on this surface.
func (c *FileCache) Load() []domain.WidgetTemplate {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return []domain.WidgetTemplate{}
	}

	templates, err := c.codec.Decode(data)
	if err != nil {
		c.logger.Warn("corrupt watch cache", "error", err)
	}
	return templates
}

func (c *FileCache) Store(templates []domain.WidgetTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.codec.Encode(templates)
	if err != nil {
		c.logger.Error("watch cache encode failed", "error", err)
		return
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		c.logger.Error("watch cache write failed", "error", err)
		return
	}
	if err := os.Rename(tmp, c.path); err != nil {
		c.logger.Error("watch cache rename failed", "error", err)
	}
}
