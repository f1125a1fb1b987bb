package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/andresmejia3/playbook/internal/config"
	"github.com/andresmejia3/playbook/internal/pipeline"
	"github.com/andresmejia3/playbook/internal/types"
	"github.com/andresmejia3/playbook/internal/utils"
	"github.com/andresmejia3/playbook/internal/video"
	"github.com/andresmejia3/playbook/internal/worker"
	"github.com/andresmejia3/playbook/internal/workflow"
)

var analyzeOpts Options

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract a workflow from a screen recording using the heuristic pipeline",
	Run: func(cmd *cobra.Command, args []string) {
		runAnalyze(cmd, analyzeOpts)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOpts.InputPath, "input", "i", "", "Path to screen recording")
	analyzeCmd.Flags().Float64Var(&analyzeOpts.Interval, "interval", 0.5, "Frame sampling interval in seconds")
	analyzeCmd.Flags().IntVar(&analyzeOpts.MaxFrames, "max-frames", 10000, "Maximum number of frames to ingest")
	analyzeCmd.Flags().IntVarP(&analyzeOpts.NumWorkers, "workers", "e", 1, "Number of parallel detector workers")
	analyzeCmd.Flags().Float64Var(&analyzeOpts.Similarity, "similarity", 0.9, "Screen clustering similarity threshold")
	analyzeCmd.Flags().Float64Var(&analyzeOpts.ClickThreshold, "click-threshold", 0.8, "Frame difference threshold for click detection")
	analyzeCmd.Flags().Float64Var(&analyzeOpts.MinActionGap, "min-gap", 0.1, "Minimum time between kept actions in seconds")
	analyzeCmd.Flags().StringVar(&analyzeOpts.ConfigPath, "config", "", "Path to YAML config file")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.Format, "format", "f", "json", "Output format (json or yaml)")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.OutputPath, "output", "o", "", "Write workflow to file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.SaveToDB, "save", false, "Persist the workflow to the database")

	analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)
}

// loadConfig merges the config file with any flags the user set explicitly.
// Explicit flags win over file values.
func loadConfig(cmd *cobra.Command, opts Options) config.Config {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		utils.Die("Failed to load config", err, nil)
	}

	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.Extraction.Interval = opts.Interval
	}
	if flags.Changed("max-frames") {
		cfg.Extraction.MaxFrames = opts.MaxFrames
	}
	if flags.Changed("workers") {
		cfg.Detection.Workers = opts.NumWorkers
	}
	if flags.Changed("similarity") {
		cfg.Mapping.SimilarityThreshold = opts.Similarity
	}
	if flags.Changed("click-threshold") {
		cfg.Actions.ClickThreshold = opts.ClickThreshold
	}
	if flags.Changed("min-gap") {
		cfg.Actions.MinActionGap = opts.MinActionGap
	}
	return cfg
}

// runAnalyze orchestrates the heuristic pipeline: frame extraction, parallel
// UI detection, and workflow inference.
func runAnalyze(cmd *cobra.Command, opts Options) {
	cfg := loadConfig(cmd, opts)
	ctx := cmd.Context()

	if _, err := os.Stat(opts.InputPath); err != nil {
		utils.Die("Cannot read input recording", err, nil)
	}

	// 1. Extract frames
	meta := video.Probe(opts.InputPath)
	bar := progressbar.NewOptions(meta.ExpectedFrames(cfg.Extraction.Interval, cfg.Extraction.MaxFrames),
		progressbar.OptionSetDescription("🎞️  Extracting frames"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	var frames []types.Frame
	var jpegs [][]byte
	err := video.Extract(ctx, opts.InputPath, cfg.Extraction.Interval, cfg.Extraction.MaxFrames,
		func(frame types.Frame, raw []byte) error {
			frames = append(frames, frame)
			jpegs = append(jpegs, raw)
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
	fmt.Fprintf(os.Stderr, "\n📼 Extracted %d frames (%.1fs of video)\n", len(frames), frames[len(frames)-1].Timestamp)

	// 2. Detect UI elements in parallel
	detections := runDetection(jpegs, cfg)

	// 3. Run the inference pipeline
	sourceLabel := filepath.Base(opts.InputPath)
	def, stats := pipeline.Run(frames, detections, sourceLabel, cfg)

	fmt.Fprintf(os.Stderr, "🖥️  Discovered %d screens\n", stats.Screens)
	fmt.Fprintf(os.Stderr, "🖱️  Detected %d candidate actions, kept %d\n", stats.Candidates, stats.Actions)

	emitWorkflow(ctx, def, opts)
}

// runDetection fans the frames out over a pool of Python detector workers.
// Each frame index is owned by exactly one worker, so the shared slice needs
// no locking.
func runDetection(jpegs [][]byte, cfg config.Config) [][]types.UIElement {
	numWorkers := cfg.Detection.Workers
	if numWorkers < 1 {
		numWorkers = 1
	}
	fmt.Fprintf(os.Stderr, "⚙️  Spawning %d detector workers...\n", numWorkers)

	bar := progressbar.NewOptions(len(jpegs),
		progressbar.OptionSetDescription("🔍 Detecting UI elements"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	detections := make([][]types.UIElement, len(jpegs))
	taskChan := make(chan int, numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			w, err := worker.NewDetectorWorker(workerID, cfg.Detection.ConfidenceThreshold)
			if err != nil {
				utils.Die("Worker startup failed", err, nil)
			}
			defer w.Close()

			consumeTasks(workerID, w, taskChan, jpegs, detections, func() { bar.Add(1) })
		}(i)
	}

	for idx := range jpegs {
		taskChan <- idx
	}
	close(taskChan)
	wg.Wait()
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	return detections
}

// frameDetector is the slice of the detector worker the pool loop needs.
type frameDetector interface {
	Detect(jpegData []byte) ([]types.UIElement, error)
}

// consumeTasks runs one worker's share of the frame queue. A transport error
// means the worker process is gone; its remaining frames are drained and left
// as empty element sets so the run degrades instead of aborting.
func consumeTasks(workerID int, d frameDetector, tasks <-chan int, jpegs [][]byte, detections [][]types.UIElement, progress func()) {
	for idx := range tasks {
		elements, err := d.Detect(jpegs[idx])
		if err != nil {
			utils.ShowError(fmt.Sprintf("detector worker %d died, remaining frames skipped", workerID), err)
			progress()
			for range tasks {
				progress()
			}
			return
		}
		detections[idx] = elements
		progress()
	}
}

// storedWorkflowID derives a stable database ID from the recording file's
// identity, so re-analyzing the same file overwrites its previous workflow
// instead of accumulating rows.
func storedWorkflowID(path string) (string, bool) {
	sid, err := utils.SourceID(path)
	if err != nil {
		return "", false
	}
	return "workflow_" + sid[:8], true
}

// emitWorkflow writes the result to the requested sinks: file, stdout,
// and/or the database.
func emitWorkflow(ctx context.Context, def types.WorkflowDefinition, opts Options) {
	if opts.SaveToDB {
		if id, ok := storedWorkflowID(opts.InputPath); ok {
			def.ID = id
		}
	}

	if opts.OutputPath != "" {
		if err := workflow.WriteFile(opts.OutputPath, def, opts.Format); err != nil {
			utils.Die("Failed to write workflow file", err, nil)
		}
		fmt.Fprintf(os.Stderr, "💾 Workflow written to %s\n", opts.OutputPath)
	} else {
		data, err := workflow.Marshal(def, opts.Format)
		if err != nil {
			utils.Die("Failed to encode workflow", err, nil)
		}
		fmt.Println(string(data))
	}

	if opts.SaveToDB {
		db := connectStore(ctx)
		defer db.Close(context.Background())
		if err := db.Save(ctx, def); err != nil {
			utils.Die("Failed to save workflow", err, nil)
		}
		fmt.Fprintf(os.Stderr, "✅ Workflow %s saved as '%s'\n", def.ID, def.Name)
	}
}
