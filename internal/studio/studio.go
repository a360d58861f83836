package studio

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/observability/metrics"
	"SongForge/internal/presets"
	"SongForge/internal/songtext"
	"SongForge/pkg/logger"
	"SongForge/pkg/plugin"
)

// Studio generates songs with whichever plugins are active in the registry.
type Studio struct {
	registry *plugin.Registry
	presets  *presets.Catalog
	metrics  *metrics.Metrics
	timeout  time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// Option configures a Studio.
type Option func(*Studio)

// WithOperationTimeout bounds every plugin call. Zero disables the bound.
func WithOperationTimeout(timeout time.Duration) Option {
	return func(s *Studio) {
		if timeout <= 0 {
			s.timeout = 0
			return
		}
		s.timeout = timeout
	}
}

// WithPresets replaces the built-in preset catalog.
func WithPresets(c *presets.Catalog) Option {
	return func(s *Studio) {
		if c != nil {
			s.presets = c
		}
	}
}

// WithMetrics records plugin calls.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Studio) {
		s.metrics = m
	}
}

// WithLogger replaces the studio logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Studio) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Studio) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Studio over registry.
func New(registry *plugin.Registry, opts ...Option) *Studio {
	s := &Studio{
		registry: registry,
		presets:  presets.Default(),
		now:      time.Now,
		log:      logger.Named("studio"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Presets returns the preset catalog in use.
func (s *Studio) Presets() *presets.Catalog {
	return s.presets
}

// Registry returns the plugin registry.
func (s *Studio) Registry() *plugin.Registry {
	return s.registry
}

// Generate writes lyrics, then produces the MIDI sketch and the cover art
// concurrently. A lyrics failure aborts and is returned together with the
// partial song; MIDI and image failures are only recorded on their facets.
func (s *Studio) Generate(ctx context.Context, req SongRequest) (*Song, error) {
	if s.registry == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "plugin registry not configured")
	}
	params, err := resolveParams(s.presets, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	song := &Song{
		Params:    params,
		PresetID:  req.PresetID,
		Facets:    Facets{Lyrics: Facet{State: FacetRunning}, Midi: Facet{State: FacetPending}, Image: Facet{State: FacetPending}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.generateLyrics(ctx, song); err != nil {
		song.UpdatedAt = s.now()
		return song, err
	}

	// Facet failures are recorded on the song; the caller still gets it.
	var g errgroup.Group
	g.Go(func() error { return s.generateMidi(ctx, song) })
	g.Go(func() error { return s.generateImage(ctx, song) })
	facetErr := g.Wait()

	song.UpdatedAt = s.now()
	attrs := []any{
		slog.String("title", song.Title),
		slog.String("midi", string(song.Facets.Midi.State)),
		slog.String("image", string(song.Facets.Image.State)),
	}
	if facetErr != nil {
		s.log.Warn("song incomplete", append(attrs, slog.Any("error", facetErr))...)
		return song, nil
	}
	s.log.Info("song generated", attrs...)
	return song, nil
}

func (s *Studio) generateLyrics(ctx context.Context, song *Song) error {
	gen, entry, err := s.registry.ActiveLyrics()
	if err != nil {
		song.Facets.Lyrics = failed("", err)
		return err
	}
	song.Facets.Lyrics = Facet{State: FacetRunning, PluginID: entry.ID}
	var result plugin.LyricsResult
	err = s.call(ctx, entry, func(ctx context.Context) error {
		var callErr error
		result, callErr = gen.GenerateLyrics(ctx, song.Params)
		return callErr
	})
	if err != nil {
		song.Facets.Lyrics = failed(entry.ID, err)
		return err
	}
	song.Title, song.Lyrics, song.StylePrompt = result.Title, result.Lyrics, result.StylePrompt
	song.Facets.Lyrics = Facet{State: FacetSucceeded, PluginID: entry.ID}
	return nil
}

func (s *Studio) generateMidi(ctx context.Context, song *Song) error {
	gen, entry, err := s.registry.ActiveMidi()
	if err != nil {
		song.Facets.Midi = failed("", err)
		return err
	}
	song.Facets.Midi = Facet{State: FacetRunning, PluginID: entry.ID}
	var midi string
	err = s.call(ctx, entry, func(ctx context.Context) error {
		var callErr error
		midi, callErr = gen.GenerateMidi(ctx, song.Params.Midi(song.StylePrompt))
		return callErr
	})
	if err != nil {
		song.Facets.Midi = failed(entry.ID, err)
		return err
	}
	song.Midi = midi
	song.Facets.Midi = Facet{State: FacetSucceeded, PluginID: entry.ID}
	return nil
}

func (s *Studio) generateImage(ctx context.Context, song *Song) error {
	gen, entry, err := s.registry.ActiveImage()
	if err != nil {
		song.Facets.Image = failed("", err)
		return err
	}
	song.Facets.Image = Facet{State: FacetRunning, PluginID: entry.ID}
	params := song.imageParams()
	var image string
	err = s.call(ctx, entry, func(ctx context.Context) error {
		var callErr error
		image, callErr = gen.GenerateImage(ctx, params)
		return callErr
	})
	if err != nil {
		song.Facets.Image = failed(entry.ID, err)
		return err
	}
	song.Image = image
	song.ImageParams = &params
	song.Facets.Image = Facet{State: FacetSucceeded, PluginID: entry.ID}
	return nil
}

// RegenerateMidi re-runs only the MIDI facet.
func (s *Studio) RegenerateMidi(ctx context.Context, song *Song) error {
	if err := requireLyrics(song); err != nil {
		return err
	}
	err := s.generateMidi(ctx, song)
	song.UpdatedAt = s.now()
	return err
}

// RegenerateImage re-runs only the cover art facet.
func (s *Studio) RegenerateImage(ctx context.Context, song *Song) error {
	if err := requireLyrics(song); err != nil {
		return err
	}
	err := s.generateImage(ctx, song)
	song.UpdatedAt = s.now()
	return err
}

// EditImage re-renders the cover from the parameters of the previous render.
func (s *Studio) EditImage(ctx context.Context, song *Song, editPrompt string) error {
	if song == nil || song.ImageParams == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "song has no cover art to edit")
	}
	if strings.TrimSpace(editPrompt) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "edit prompt cannot be empty")
	}
	gen, entry, err := s.registry.ActiveImage()
	if err != nil {
		return err
	}
	var image string
	err = s.call(ctx, entry, func(ctx context.Context) error {
		var callErr error
		image, callErr = gen.EditImage(ctx, *song.ImageParams, editPrompt)
		return callErr
	})
	if err != nil {
		return err
	}
	song.Image = image
	song.Facets.Image = Facet{State: FacetSucceeded, PluginID: entry.ID}
	song.UpdatedAt = s.now()
	return nil
}

// Analyze stores a critique and revision suggestion on song.
func (s *Studio) Analyze(ctx context.Context, song *Song) error {
	if err := requireLyrics(song); err != nil {
		return err
	}
	analyzer, entry, err := s.registry.ActiveAnalyzer()
	if err != nil {
		return err
	}
	var result plugin.AnalysisResult
	err = s.call(ctx, entry, func(ctx context.Context) error {
		var callErr error
		result, callErr = analyzer.AnalyzeLyrics(ctx, song.Lyrics, song.Title, song.Params.LyricTheme)
		return callErr
	})
	if err != nil {
		return err
	}
	song.Analysis = &result
	song.UpdatedAt = s.now()
	return nil
}

// ApplySuggestion rewrites the suggested section and clears the analysis.
func (s *Studio) ApplySuggestion(song *Song) error {
	if err := requireLyrics(song); err != nil {
		return err
	}
	if song.Analysis == nil || song.Analysis.Suggestion.Section == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "song has no suggestion to apply")
	}
	revised, err := songtext.ApplySuggestion(song.Lyrics, song.Analysis.Suggestion.Section, song.Analysis.Suggestion.RevisedLyrics)
	if err != nil {
		return err
	}
	song.Lyrics = revised
	song.Analysis = nil
	song.UpdatedAt = s.now()
	return nil
}

// Evaluate stores quality scores on song.
func (s *Studio) Evaluate(ctx context.Context, song *Song) error {
	if err := requireLyrics(song); err != nil {
		return err
	}
	evaluator, entry, err := s.registry.ActiveEvaluator()
	if err != nil {
		return err
	}
	var metrics plugin.EvaluationMetrics
	err = s.call(ctx, entry, func(ctx context.Context) error {
		var callErr error
		metrics, callErr = evaluator.EvaluateSong(ctx, song.Lyrics, song.Title, song.Params)
		return callErr
	})
	if err != nil {
		return err
	}
	song.Evaluation = &metrics
	song.UpdatedAt = s.now()
	return nil
}

// call runs fn under the operation timeout and records metrics.
func (s *Studio) call(ctx context.Context, entry plugin.Entry, fn func(context.Context) error) error {
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(callCtx)
	if err != nil && stdErrors.Is(err, context.DeadlineExceeded) {
		err = xerrors.Wrap(xerrors.CodeTimeout, err, fmt.Sprintf("%s plugin %s timed out", entry.Type, entry.ID))
	}
	s.metrics.ObservePluginCall(entry.ID, entry.Type, err, time.Since(start))
	if err != nil {
		s.log.Warn("plugin call failed",
			slog.String("plugin_id", entry.ID),
			slog.String("type", string(entry.Type)),
			slog.String("code", string(xerrors.CodeOf(err))),
			slog.Any("error", err),
		)
	}
	return err
}

func requireLyrics(song *Song) error {
	if song == nil || strings.TrimSpace(song.Lyrics) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "song has no lyrics yet")
	}
	return nil
}

func failed(pluginID string, err error) Facet {
	return Facet{State: FacetFailed, PluginID: pluginID, Error: err.Error()}
}
