package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"SongForge/internal/songtext"
	"SongForge/internal/studio"
	"SongForge/pkg/plugin"
)

type generateFlags struct {
	preset   string
	offline  bool
	outDir   string
	analyze  bool
	evaluate bool
	anger    int
	sadness  int
	joy      int
}

func newGenerateCmd(flags *rootFlags) *cobra.Command {
	gf := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one song and write its MIDI sketch and cover art",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := studio.SongRequest{PresetID: gf.preset}
			if cmd.Flags().Changed("anger") || cmd.Flags().Changed("sadness") || cmd.Flags().Changed("joy") {
				req.Sentiment = &studio.Sentiment{Anger: gf.anger, Sadness: gf.sadness, Joy: gf.joy}
			}
			a, err := newApp(cmd.Context(), flags.cfg, gf.offline)
			if err != nil {
				return err
			}
			defer a.Close()
			return runGenerate(cmd.Context(), a.studio, req, gf, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&gf.preset, "preset", "p", "midnight-drive-synthwave", "Preset id to generate from")
	cmd.Flags().BoolVar(&gf.offline, "offline", false, "Use the offline plugin instead of the manifest")
	cmd.Flags().StringVarP(&gf.outDir, "out", "o", ".", "Directory for the .mid and .png files")
	cmd.Flags().BoolVar(&gf.analyze, "analyze", false, "Print a lyric analysis")
	cmd.Flags().BoolVar(&gf.evaluate, "evaluate", false, "Print quality scores")
	cmd.Flags().IntVar(&gf.anger, "anger", 0, "Anger level 0-100")
	cmd.Flags().IntVar(&gf.sadness, "sadness", 0, "Sadness level 0-100")
	cmd.Flags().IntVar(&gf.joy, "joy", 0, "Joy level 0-100")
	return cmd
}

func runGenerate(ctx context.Context, st *studio.Studio, req studio.SongRequest, gf *generateFlags, out io.Writer) error {
	song, err := st.Generate(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\nStyle: %s\n\n%s\n\n", song.Title, song.StylePrompt, song.Lyrics)

	if err := os.MkdirAll(gf.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if song.Midi != "" {
		raw, err := songtext.DecodeMidi(song.Midi)
		if err != nil {
			return err
		}
		if err := writeArtifact(out, gf.outDir, song.MidiFilename(), raw); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "MIDI unavailable: %s\n", song.Facets.Midi.Error)
	}
	if song.Image != "" {
		raw, _, err := songtext.DecodeImage(song.Image)
		if err != nil {
			return err
		}
		if err := writeArtifact(out, gf.outDir, song.ImageFilename(), raw); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Cover art unavailable: %s\n", song.Facets.Image.Error)
	}

	if gf.analyze {
		if err := st.Analyze(ctx, song); err != nil {
			return err
		}
		a := song.Analysis
		fmt.Fprintf(out, "\nTheme: %s\nMood: %s\nCritique: %s\n", a.Theme, a.Mood, a.Critique)
		if a.Suggestion.Section != "" {
			fmt.Fprintf(out, "Suggested %s:\n%s\n", a.Suggestion.Section, a.Suggestion.RevisedLyrics)
		}
	}
	if gf.evaluate {
		if err := st.Evaluate(ctx, song); err != nil {
			return err
		}
		m := song.Evaluation
		fmt.Fprintf(out, "\nOverall: %.0f (%s)  lyrical %d  musical %d\n",
			m.OverallScore, plugin.BandOf(m.OverallScore), m.LyricalAverage(), m.MusicalAverage())
		if len(m.Improvements) > 0 {
			fmt.Fprintf(out, "Improvements:\n  - %s\n", strings.Join(m.Improvements, "\n  - "))
		}
	}
	return nil
}

func writeArtifact(out io.Writer, dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	fmt.Fprintf(out, "wrote %s (%d bytes)\n", path, len(data))
	return nil
}
