package icons

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Sizes lists icon size directories from most to least preferred.
var Sizes = []string{
	"scalable",
	"512x512",
	"256x256",
	"192x192",
	"128x128",
	"96x96",
	"72x72",
	"64x64",
	"48x48",
	"32x32",
	"24x24",
	"16x16",
	"symbolic",
}

// Resolver finds application icons in XDG icon themes.
type Resolver struct {
	dirs   []string
	logger *zap.Logger
}

// NewResolver creates a resolver over the given data directories.
func NewResolver(dirs []string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dirs: dirs, logger: logger}
}

// Resolve returns the icon path for appID, or "" when none is found.
func (r *Resolver) Resolve(ctx context.Context, appID string) string {
	if appID == "" {
		return ""
	}

	for _, dir := range r.dirs {
		for _, theme := range r.themes(dir) {
			for _, size := range Sizes {
				if ctx.Err() != nil {
					return ""
				}
				if icon := r.search(ctx, filepath.Join(theme, size), appID); icon != "" {
					return icon
				}
			}
		}
	}
	return ""
}

// themes lists theme directories under <dir>/icons in lexical order.
func (r *Resolver) themes(dir string) []string {
	matches, err := doublestar.Glob(os.DirFS(dir), "icons/*")
	if err != nil {
		r.logger.Debug("icon theme glob failed", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	themes := make([]string, 0, len(matches))
	for _, m := range matches {
		theme := filepath.Join(dir, filepath.FromSlash(m))
		if info, err := os.Stat(theme); err == nil && info.IsDir() {
			themes = append(themes, theme)
		}
	}
	return themes
}

// search walks one size directory for image files named after appID and
// returns the lexically smallest match.
func (r *Resolver) search(ctx context.Context, root, appID string) string {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return ""
	}

	var (
		mu   sync.Mutex
		best string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() {
			return nil
		}
		if !strings.HasPrefix(filepath.Base(p), appID) {
			return nil
		}
		if !isImage(p) {
			return nil
		}

		mu.Lock()
		if best == "" || p < best {
			best = p
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		r.logger.Debug("icon walk failed", zap.String("root", root), zap.Error(err))
	}

	return best
}

func isImage(path string) bool {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}
