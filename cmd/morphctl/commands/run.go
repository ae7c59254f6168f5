package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gogpu/morph"
	"github.com/gogpu/morph/internal/imageio"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run -i input -o output -p pipeline",
	Short: "Run a filter pipeline on an image",
	Long: `Load an image, convert it to 8-bit grayscale, run a pipeline of
filters on the selected device and write the result.

A pipeline is a comma separated list of steps:

  threshold:LO:HI    keep pixels in [LO, HI], zero the rest
  rthreshold:LO:HI   zero pixels in [LO, HI], keep the rest
  invert             replace v with 255-v
  erode:R            minimum over radius R
  dilate:R           maximum over radius R
  open:R             erode then dilate
  close:R            dilate then erode

Input may be PNG, JPEG, GIF, BMP or TIFF. Output is PNG, BMP or TIFF,
chosen by extension.`,
	Example: `  morphctl run -i scan.png -o mask.png -p threshold:100:255,open:2
  morphctl run -i in.tif -o out.bmp -p erode:3 --shape disk --threads 128 --blocks 64`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	f := runCmd.Flags()
	f.StringP("input", "i", "", "input image")
	f.StringP("output", "o", "", "output image")
	f.StringP("pipeline", "p", "", "filter pipeline")
	f.IntP("device", "d", 0, "device id (see 'morphctl devices')")
	f.String("strategy", "auto", "erode/dilate strategy: auto, direct, separable")
	f.String("shape", "square", "structuring element: square or disk")
	f.Int("threads", 0, "threads per workgroup; 0 selects the launch automatically")
	f.Int("blocks", 0, "workgroup count for a manual launch")
	f.String("memory-budget", "", "device memory budget, e.g. 256MiB")
	f.Int("workers", 0, "CPU device worker goroutines (0 = GOMAXPROCS)")

	for _, name := range []string{"input", "output", "pipeline", "device", "strategy", "shape",
		"threads", "blocks", "memory-budget", "workers"} {
		_ = viper.BindPFlag(name, f.Lookup(name))
	}
	rootCmd.AddCommand(runCmd)
}

// runSettings is the resolved configuration of one run.
type runSettings struct {
	input, output string
	steps         []step
	device        int
	launch        morph.Launch
	filterOpts    []morph.FilterOption
	engineOpts    []morph.Option
}

func loadRunSettings(v *viper.Viper) (*runSettings, error) {
	s := &runSettings{
		input:  v.GetString("input"),
		output: v.GetString("output"),
		device: v.GetInt("device"),
	}
	if s.input == "" || s.output == "" {
		return nil, fmt.Errorf("--input and --output are required")
	}

	steps, err := parsePipeline(strings.Join(v.GetStringSlice("pipeline"), ","))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	s.steps = steps

	strategy, err := morph.ParseStrategy(v.GetString("strategy"))
	if err != nil {
		return nil, err
	}
	shape, err := morph.ParseShape(v.GetString("shape"))
	if err != nil {
		return nil, err
	}
	s.filterOpts = []morph.FilterOption{morph.WithStrategy(strategy), morph.WithShape(shape)}

	s.launch = morph.Auto
	if threads := v.GetInt("threads"); threads != 0 {
		s.launch = morph.Manual{Threads: threads, Blocks: v.GetInt("blocks")}
	}

	if b := v.GetString("memory-budget"); b != "" {
		n, err := humanize.ParseBytes(b)
		if err != nil {
			return nil, fmt.Errorf("memory-budget: %w", err)
		}
		s.engineOpts = append(s.engineOpts, morph.WithMemoryBudget(n))
	}
	if w := v.GetInt("workers"); w > 0 {
		s.engineOpts = append(s.engineOpts, morph.WithWorkers(w))
	}
	return s, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	s, err := loadRunSettings(viper.GetViper())
	if err != nil {
		return err
	}

	img, err := imageio.Load(s.input)
	if err != nil {
		return err
	}

	e, err := morph.Open(s.device, s.engineOpts...)
	if err != nil {
		return err
	}
	defer e.Close()

	log := morph.Logger()
	log.Info("morphctl: running pipeline", "device", e.Device().Name,
		"size", fmt.Sprintf("%dx%d", img.Width, img.Height), "steps", len(s.steps), "launch", s.launch.String())

	start := time.Now()
	if err := e.Load(img.Pix, img.Width, img.Height); err != nil {
		return err
	}

	var progress io.Writer = cmd.ErrOrStderr()
	if viper.GetBool("quiet") {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(len(s.steps),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("filtering"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	for _, st := range s.steps {
		bar.Describe(st.String())
		if err := st.apply(e, s.launch, s.filterOpts...); err != nil {
			_ = e.Free()
			return fmt.Errorf("%s: %w", st, err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	mem := e.MemoryStats()
	if err := e.Unload(img.Pix); err != nil {
		return err
	}
	if err := imageio.Save(s.output, img); err != nil {
		return err
	}

	if !viper.GetBool("quiet") {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d steps on %s in %s (%s device memory)\n",
			s.output, len(s.steps), e.Device().Name, time.Since(start).Round(time.Microsecond),
			humanize.IBytes(mem.PeakBytes))
	}
	return nil
}
