// Package media is the format-agnostic front door: it picks the handler for
// a file, reads its capture time and coordinate without ever failing, and
// writes coordinates back behind a one-time backup.
package media

import (
	"fmt"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/image"
	"github.com/ankit-chaubey/media-gps-surgery/core/video"
)

// Resolver returns the handler responsible for a file.
type Resolver interface {
	HandlerFor(path string) (core.Handler, error)
}

// Registry resolves handlers by sniffing the file's format.
type Registry struct {
	Image image.Options
	Video video.Options
}

// HandlerFor detects the format of path and returns its handler.
func (r *Registry) HandlerFor(path string) (core.Handler, error) {
	id, err := core.DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch core.KindFor(id) {
	case core.KindStill, core.KindHEIC:
		return image.New(id, r.Image), nil
	case core.KindVideo:
		return video.New(id, r.Video), nil
	default:
		return nil, fmt.Errorf("%s: %w", path, core.ErrUnsupported)
	}
}
