package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/andresmejia3/playbook/internal/types"
	"github.com/andresmejia3/playbook/internal/utils"
	"github.com/andresmejia3/playbook/internal/video"
	"github.com/andresmejia3/playbook/internal/vlm"
)

var describeOpts Options

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Extract a workflow from a screen recording using a vision language model",
	Long: `Sends sampled frames to a VLM service (ollama, openai, or gemini) and
assembles its answers into a workflow definition. Slower and costlier than
'analyze', but works on recordings the heuristics struggle with.`,
	Run: func(cmd *cobra.Command, args []string) {
		runDescribe(cmd, describeOpts)
	},
}

func init() {
	describeCmd.Flags().StringVarP(&describeOpts.InputPath, "input", "i", "", "Path to screen recording")
	describeCmd.Flags().Float64Var(&describeOpts.Interval, "interval", 2.0, "Frame sampling interval in seconds")
	describeCmd.Flags().IntVar(&describeOpts.MaxFrames, "max-frames", 200, "Maximum number of frames to send to the model")
	describeCmd.Flags().StringVar(&describeOpts.Provider, "provider", "", "VLM provider (ollama, openai, gemini)")
	describeCmd.Flags().StringVar(&describeOpts.Model, "model", "", "Model name")
	describeCmd.Flags().StringVar(&describeOpts.BaseURL, "base-url", "", "Service base URL")
	describeCmd.Flags().StringVar(&describeOpts.ConfigPath, "config", "", "Path to YAML config file")
	describeCmd.Flags().StringVarP(&describeOpts.Format, "format", "f", "json", "Output format (json or yaml)")
	describeCmd.Flags().StringVarP(&describeOpts.OutputPath, "output", "o", "", "Write workflow to file instead of stdout")
	describeCmd.Flags().BoolVar(&describeOpts.SaveToDB, "save", false, "Persist the workflow to the database")

	describeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, opts Options) {
	cfg := loadConfig(cmd, opts)
	ctx := cmd.Context()

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.VLM.Provider = opts.Provider
	}
	if flags.Changed("model") {
		cfg.VLM.Model = opts.Model
	}
	if flags.Changed("base-url") {
		cfg.VLM.BaseURL = opts.BaseURL
	}

	callTimeout, err := time.ParseDuration(cfg.VLM.Timeout)
	if err != nil {
		utils.Die("Invalid VLM timeout", err, nil)
	}

	client, err := vlm.New(vlm.Config{
		Provider:    vlm.Provider(cfg.VLM.Provider),
		Model:       cfg.VLM.Model,
		BaseURL:     cfg.VLM.BaseURL,
		APIKey:      cfg.VLM.APIKey,
		Temperature: cfg.VLM.Temperature,
		MaxTokens:   cfg.VLM.MaxTokens,
		Timeout:     callTimeout,
	})
	if err != nil {
		utils.Die("Failed to create VLM client", err, nil)
	}

	if _, err := os.Stat(opts.InputPath); err != nil {
		utils.Die("Cannot read input recording", err, nil)
	}

	// 1. Extract frames, keeping the raw JPEG bytes the model consumes.
	// Sampling is governed by this command's own flags: VLM calls are
	// expensive, so the defaults are much coarser than analyze's.
	meta := video.Probe(opts.InputPath)
	interval := opts.Interval
	maxFrames := opts.MaxFrames

	bar := progressbar.NewOptions(meta.ExpectedFrames(interval, maxFrames),
		progressbar.OptionSetDescription("🎞️  Extracting frames"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	var frames []vlm.FrameImage
	err = video.Extract(ctx, opts.InputPath, interval, maxFrames,
		func(frame types.Frame, raw []byte) error {
			frames = append(frames, vlm.FrameImage{
				Index:     frame.Index,
				Timestamp: frame.Timestamp,
				Width:     frame.Width,
				Height:    frame.Height,
				JPEG:      raw,
			})
			bar.Add(1)
			return nil
		})
	if err != nil {
		utils.Die("Frame extraction failed", err, nil)
	}
	bar.Finish()

	if len(frames) == 0 {
		utils.Die("No frames could be extracted from the recording", nil, nil)
	}
	fmt.Fprintf(os.Stderr, "\n📼 Extracted %d frames, sending to %s (%s)...\n",
		len(frames), cfg.VLM.Provider, cfg.VLM.Model)

	// 2. Run the model over frames and frame pairs
	analyzer := vlm.NewAnalyzer(client, cfg.VLM.BatchSize, callTimeout)
	def, err := analyzer.AnalyzeWorkflow(ctx, frames, filepath.Base(opts.InputPath))
	if err != nil {
		utils.Die("VLM analysis failed", err, nil)
	}

	fmt.Fprintf(os.Stderr, "🖥️  Discovered %d screens, %d actions\n", len(def.Screens), len(def.Actions))
	emitWorkflow(ctx, def, opts)
}
