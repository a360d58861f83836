package task

import (
	"context"
	"slices"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/studio"
)

// RecoveryHandler compensates for a failure that will not be retried. A
// non-nil song is stored as the job result; nil continues the normal failure
// path.
type RecoveryHandler interface {
	Recover(ctx context.Context, job *Job, cause error) (*studio.Song, error)
}

// FallbackRecovery regenerates the song with a secondary generator, usually a
// studio backed only by the offline plugin, so the job ends with a draft.
type FallbackRecovery struct {
	Generator Generator
	// Codes limits recovery to these failure codes. Empty means any code.
	Codes []xerrors.Code
}

// Recover implements RecoveryHandler.
func (f *FallbackRecovery) Recover(ctx context.Context, job *Job, cause error) (*studio.Song, error) {
	if f == nil || f.Generator == nil || job == nil {
		return nil, nil
	}
	if len(f.Codes) > 0 && !slices.Contains(f.Codes, xerrors.CodeOf(cause)) {
		return nil, nil
	}
	song, err := f.Generator.Generate(ctx, job.Request)
	if err != nil {
		return nil, err
	}
	return song, nil
}
