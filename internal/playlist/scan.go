package playlist

import (
	"fmt"
	"image"
	_ "image/gif"  // GIF format support
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/genricoloni/photowidget/internal/domain"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp" // BMP format support
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
}

// HasImageExtension reports whether path ends in a supported image extension (case-insensitive)
func HasImageExtension(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// HeaderProber reads dimensions from the image header only
type HeaderProber struct{}

// Probe returns the pixel dimensions recorded in the image header
func (HeaderProber) Probe(path string) (domain.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Size{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return domain.Size{}, fmt.Errorf("failed to read image header: %w", err)
	}
	return domain.Size{W: float64(cfg.Width), H: float64(cfg.Height)}, nil
}

// Scanner walks folders and collects the images passing the orientation filter
type Scanner struct {
	logger *zap.Logger
	prober domain.DimensionProber
}

// NewScanner creates a scanner; a nil prober selects HeaderProber
func NewScanner(logger *zap.Logger, prober domain.DimensionProber) *Scanner {
	if prober == nil {
		prober = HeaderProber{}
	}
	return &Scanner{logger: logger, prober: prober}
}

// Scan recursively walks every folder and returns the qualifying image paths
// in walk order. Unreadable entries are skipped, probe failures excluded,
// and a path reachable from several folders is listed once.
func (s *Scanner) Scan(folders []string, filter domain.OrientationFilter) []string {
	seen := make(map[string]struct{})
	var paths []string
	skipped := 0

	for _, folder := range folders {
		err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable directory: skip its subtree but keep walking
				s.logger.Debug("Skipping unreadable entry", zap.String("path", path), zap.Error(err))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !HasImageExtension(path) || !isRegularFile(path, d) {
				return nil
			}

			key := filepath.Clean(path)
			if abs, err := filepath.Abs(key); err == nil {
				key = abs
			}
			if _, dup := seen[key]; dup {
				return nil
			}
			seen[key] = struct{}{}

			dims, err := s.prober.Probe(path)
			if err != nil {
				skipped++
				s.logger.Debug("Excluding image with unreadable header", zap.String("path", path), zap.Error(err))
				return nil
			}
			if filter.Accepts(dims) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			s.logger.Warn("Folder walk aborted", zap.String("folder", folder), zap.Error(err))
		}
	}

	s.logger.Info("Folder scan complete",
		zap.Int("folders", len(folders)),
		zap.Int("images", len(paths)),
		zap.Int("skipped", skipped),
		zap.String("filter", filter.String()))
	return paths
}

// isRegularFile follows symlinks so linked images are played too
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
