package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/book-expert/mediagen/internal/fileutil"
	"github.com/book-expert/mediagen/internal/objectstore"
	"github.com/book-expert/mediagen/internal/podcast"
	"github.com/book-expert/mediagen/internal/tts"
	"github.com/book-expert/mediagen/internal/tts/audio"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

// Flag names and descriptions for the podcast commands.
const (
	flagContinuous     = "continuous"
	flagCombine        = "combine"
	flagText           = "text"
	flagTextFile       = "text-file"
	flagOutput         = "output"
	flagOutputDir      = "output-dir"
	flagSpeed          = "speed"
	flagVoice          = "voice"
	flagKey            = "key"
	flagContinuousDesc = "synthesize the affirmations as one continuous file"
	flagCombineDesc    = "combine the parts into the final episode afterwards"
	flagTextDesc       = "text to speak"
	flagTextFileDesc   = "file holding the text to speak"
	flagOutputDesc     = "output MP3 path"
	flagOutputDirDesc  = "directory for chunk_NNNN.mp3 files (podcast output dir when empty)"
	flagSpeedDesc      = "speech speed (0.25-4.0, configured speed when zero)"
	flagVoiceDesc      = "voice name (configured voice when empty)"
	flagKeyDesc        = "object key (file name when empty)"
	publishDescription = "Meditation podcast episode"
)

var (
	// ErrTextSource is returned when speak gets neither or both of --text and --text-file.
	ErrTextSource = errors.New("exactly one of --text or --text-file is required")
	// ErrNotAudio is returned by publish for a file without an audio extension.
	ErrNotAudio = errors.New("not an audio file")
	// ErrFFmpegMissing is returned by combine when ffmpeg cannot be run.
	ErrFFmpegMissing = errors.New("ffmpeg is required to combine audio")
)

func newPodcastCmd(state *app) *cobra.Command {
	podcastCmd := &cobra.Command{
		Use:   "podcast",
		Short: "Generate the narrated meditation podcast",
	}

	podcastCmd.AddCommand(
		newPodcastGenerateCmd(state),
		newPodcastSpeakCmd(state),
		newPodcastChunksCmd(state),
		newPodcastVoicesCmd(state),
		newPodcastCombineCmd(state),
		newPodcastCheckCmd(state),
		newPodcastReportCmd(state),
		newPodcastPublishCmd(state),
	)

	return podcastCmd
}

func newPodcastGenerateCmd(state *app) *cobra.Command {
	var continuous, combine bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize every script part found in the input directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			podcastCfg := state.cfg.Podcast

			var ffmpeg *audio.FFmpeg

			if combine {
				checked, checkErr := state.checkFFmpeg(cmd.Context())
				if checkErr != nil {
					return checkErr
				}

				ffmpeg = checked
			}

			script, err := podcast.LoadScript(podcastCfg.InputDir)
			if err != nil {
				return err
			}

			generator, err := state.podcastGenerator(out, true)
			if err != nil {
				return err
			}

			report, runErr := generator.Run(cmd.Context(), script, continuous)
			if report != nil {
				report.Print(out)
			}

			if runErr != nil {
				state.log.Error("Podcast generation finished with errors: %v", runErr)
				_, _ = fmt.Fprintf(out, "Some parts failed: %v\n", runErr)
			}

			if !combine {
				return runErr
			}

			combineErr := state.combine(cmd, generator, ffmpeg)

			return errors.Join(runErr, combineErr)
		},
	}

	cmd.Flags().BoolVar(&continuous, flagContinuous, false, flagContinuousDesc)
	cmd.Flags().BoolVar(&combine, flagCombine, false, flagCombineDesc)

	return cmd
}

func newPodcastSpeakCmd(state *app) *cobra.Command {
	var (
		input, textFile, output, voice string
		speed                          float64
	)

	cmd := &cobra.Command{
		Use:   "speak",
		Short: "Speak one text into one MP3 file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (input == "") == (textFile == "") {
				return ErrTextSource
			}

			if textFile != "" {
				loaded, loadErr := fileutil.LoadText(textFile)
				if loadErr != nil {
					return loadErr
				}

				input = loaded
			}

			engine, err := state.podcastEngine(cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}

			if voice != "" {
				engine = engine.WithVoice(voice)
			}

			if speed != 0 {
				engine = engine.WithSpeed(speed)
			}

			speakErr := engine.ProcessLongText(cmd.Context(), input, output)
			if speakErr != nil {
				return speakErr
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s\n", output)

			return nil
		},
	}

	cmd.Flags().StringVar(&input, flagText, "", flagTextDesc)
	cmd.Flags().StringVar(&textFile, flagTextFile, "", flagTextFileDesc)
	cmd.Flags().StringVar(&output, flagOutput, "", flagOutputDesc)
	cmd.Flags().StringVar(&voice, flagVoice, "", flagVoiceDesc)
	cmd.Flags().Float64Var(&speed, flagSpeed, 0, flagSpeedDesc)

	_ = cmd.MarkFlagRequired(flagOutput)

	return cmd
}

func newPodcastChunksCmd(state *app) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "chunks <chunks.json>",
		Short: "Speak a JSON array of text chunks into numbered MP3 files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				outputDir = state.cfg.Podcast.OutputDir
			}

			engine, err := state.podcastEngine(cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}

			chunksErr := engine.ProcessChunks(cmd.Context(), args[0], outputDir)
			if chunksErr != nil {
				return chunksErr
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Chunks written to %s\n", outputDir)

			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, flagOutputDir, "", flagOutputDirDesc)

	return cmd
}

func newPodcastVoicesCmd(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "voices [voice...]",
		Short: "Speak a sample sentence in several voices",
		RunE: func(cmd *cobra.Command, args []string) error {
			generator, err := state.podcastGenerator(cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Voice samples in %s:\n", generator.OutputDir())

			_, samplesErr := generator.GenerateVoiceSamples(cmd.Context(), args)

			return samplesErr
		},
	}
}

func newPodcastCombineCmd(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "combine",
		Short: "Concatenate the generated parts into the final episode with ffmpeg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ffmpeg, err := state.checkFFmpeg(cmd.Context())
			if err != nil {
				return err
			}

			generator := podcast.NewGenerator(nil, state.podcastOptions(cmd.OutOrStdout()), state.log)

			return state.combine(cmd, generator, ffmpeg)
		},
	}
}

func newPodcastCheckCmd(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Show script statistics and warnings and the generated audio files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			podcastCfg := state.cfg.Podcast

			_, _ = fmt.Fprintf(out, "Scripts in %s:\n", podcastCfg.InputDir)

			for _, status := range podcast.InspectScripts(podcastCfg.InputDir) {
				if !status.Found {
					_, _ = fmt.Fprintf(out, "  %s: missing (%s)\n", status.Part, status.Path)

					continue
				}

				analysis := status.Analysis
				_, _ = fmt.Fprintf(out, "  %s: %d characters, %d words, %d sentences, ~%.1f min\n",
					status.Part, analysis.Characters, analysis.Words, analysis.Sentences, analysis.EstimatedMinutes)
				_, _ = fmt.Fprintf(out, "    %q\n", status.Preview)

				for _, warning := range analysis.Warnings {
					_, _ = fmt.Fprintf(out, "    warning: %s\n", warning)
				}
			}

			return printReport(out, podcastCfg.OutputDir)
		},
	}
}

func newPodcastReportCmd(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "List the generated audio files with sizes and durations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printReport(cmd.OutOrStdout(), state.cfg.Podcast.OutputDir)
		},
	}
}

func newPodcastPublishCmd(state *app) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "publish <file.mp3>",
		Short: "Upload an MP3 to the NATS object store bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := args[0]

			if !fileutil.IsValidAudioFile(path) {
				return fmt.Errorf("%w: %s", ErrNotAudio, path)
			}

			if key == "" {
				key = filepath.Base(path)
			}

			natsConnection, err := nats.Connect(state.cfg.NATS.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to NATS at %s: %w", state.cfg.NATS.URL, err)
			}
			defer natsConnection.Close()

			jetstreamContext, err := natsConnection.JetStream()
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			store, err := objectstore.New(jetstreamContext, state.cfg.NATS.AudioObjectStoreBucket)
			if err != nil {
				return err
			}

			uploadErr := store.UploadFile(cmd.Context(), key, path, publishDescription)
			if uploadErr != nil {
				return uploadErr
			}

			state.log.Info("Published %s to %s/%s", path, store.Bucket(), key)

			objects, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out, "Bucket %s:\n", store.Bucket())

			for _, object := range objects {
				_, _ = fmt.Fprintf(out, "  %s  %s\n", object.Name, fileutil.FormatFileSize(int64(object.Size)))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&key, flagKey, "", flagKeyDesc)

	return cmd
}

// podcastEngine builds the speech engine from config. With useSettings the
// settings file, when present, overrides voice, model and speed.
func (a *app) podcastEngine(out io.Writer, useSettings bool) (*tts.Engine, error) {
	apiClient, err := a.openAIClient(out)
	if err != nil {
		return nil, err
	}

	podcastCfg := a.cfg.Podcast
	voice, model, speed, chunkLimit := podcastCfg.Voice, podcastCfg.Model, podcastCfg.Speed, podcastCfg.ChunkLimit

	if useSettings {
		settings, found, settingsErr := podcast.LoadSettings(podcastCfg.SettingsFile)
		if settingsErr != nil {
			return nil, settingsErr
		}

		if found {
			a.log.Info("Using %s: voice=%s model=%s speed=%.2f",
				podcastCfg.SettingsFile, settings.Voice, settings.Model, settings.Speed)

			voice, model, speed = settings.Voice, settings.Model, settings.Speed

			if settings.ChunkSize > 0 {
				chunkLimit = settings.ChunkSize
			}
		}
	}

	client := tts.NewClient(apiClient, tts.SpeechRequest{
		Text:   "",
		Voice:  voice,
		Model:  model,
		Format: tts.DefaultFormat,
		Speed:  speed,
	})

	return tts.NewEngine(client, tts.EngineOptions{
		Voice:      voice,
		Model:      model,
		Speed:      speed,
		ChunkLimit: chunkLimit,
		Delay:      podcastCfg.AffirmationDelay(),
	}, a.log), nil
}

func (a *app) podcastGenerator(out io.Writer, useSettings bool) (*podcast.Generator, error) {
	engine, err := a.podcastEngine(out, useSettings)
	if err != nil {
		return nil, err
	}

	return podcast.NewGenerator(engine, a.podcastOptions(out), a.log), nil
}

func (a *app) podcastOptions(out io.Writer) podcast.Options {
	podcastCfg := a.cfg.Podcast

	return podcast.Options{
		Out:          out,
		OutputDir:    podcastCfg.OutputDir,
		Speeds:       podcastCfg.Speeds,
		ManifestName: podcastCfg.ManifestName,
		FinalName:    podcastCfg.FinalName,
		Pause:        podcastCfg.AffirmationPause(),
	}
}

// combine checks for ffmpeg before touching any file and then concatenates
// the parts.
// checkFFmpeg returns the configured ffmpeg once it is known to run.
func (a *app) checkFFmpeg(ctx context.Context) (*audio.FFmpeg, error) {
	ffmpeg := audio.NewFFmpeg(a.cfg.Podcast.FFmpegPath)

	checkErr := ffmpeg.Check(ctx)
	if checkErr != nil {
		a.log.Error("ffmpeg unavailable: %v", checkErr)

		return nil, fmt.Errorf("%w: %w", ErrFFmpegMissing, checkErr)
	}

	return ffmpeg, nil
}

func (a *app) combine(cmd *cobra.Command, generator *podcast.Generator, ffmpeg *audio.FFmpeg) error {
	out := cmd.OutOrStdout()

	result, err := generator.Combine(cmd.Context(), ffmpeg)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Combined %d parts into %s (%s, %s)\n",
		len(result.Parts), result.Path, result.FinalSizeLabel(), fileutil.FormatDuration(result.Duration.Seconds()))

	return nil
}

func printReport(out io.Writer, dir string) error {
	report, err := podcast.BuildReport(dir)
	if err != nil {
		return err
	}

	report.Print(out)

	return nil
}
