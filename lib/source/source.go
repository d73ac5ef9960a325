// Package source holds the producers that feed a window backing from
// local content: still images, generated patterns and recorded traces.
package source

import (
	"context"
)

type Source interface {
	Name() string
	// Run feeds the target until ctx is done or the content is exhausted.
	Run(ctx context.Context) error
}
