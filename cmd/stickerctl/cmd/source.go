package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/feral-file/ff-sticker/internal/domain"
)

// packFlags holds the metadata flags shared by convert and watch
type packFlags struct {
	packName string
	author   string
	emojis   []string
	extra    map[string]string
}

func (f *packFlags) metadata() *domain.PackMetadata {
	meta := &domain.PackMetadata{
		PackName:   f.packName,
		Author:     f.author,
		Categories: f.emojis,
	}
	if len(f.extra) > 0 {
		meta.Extra = make(map[string]any, len(f.extra))
		for k, v := range f.extra {
			meta.Extra[k] = v
		}
	}
	return meta
}

// isURL reports whether a convert argument names a remote source
func isURL(arg string) bool {
	lower := strings.ToLower(arg)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// outputPath derives <dir>/<source name>.webp. An empty dir keeps the source directory for local files.
func outputPath(source string, dir string) (string, error) {
	base := source
	if isURL(source) {
		base = strings.SplitN(strings.SplitN(source, "?", 2)[0], "#", 2)[0]
	}

	name := strings.TrimSuffix(filepath.Base(base), filepath.Ext(base))
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("cannot derive an output name from %s, use --output", source)
	}

	if dir == "" {
		if isURL(source) {
			dir = "."
		} else {
			dir = filepath.Dir(source)
		}
	}
	return filepath.Join(dir, name+".webp"), nil
}
