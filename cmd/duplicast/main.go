package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jgcoded/duplicast/internal/audiocap"
	"github.com/jgcoded/duplicast/internal/config"
	"github.com/jgcoded/duplicast/internal/duplication"
	"github.com/jgcoded/duplicast/internal/gpucore"
	"github.com/jgcoded/duplicast/internal/logging"
	"github.com/jgcoded/duplicast/internal/recorder"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var log = logging.L("main")

var (
	cfgFile string

	flagMonitor   int
	flagOut       string
	flagFPS       int
	flagBitrate   int
	flagMic       string
	flagQuality   string
	flagAudioQual string
)

var rootCmd = &cobra.Command{
	Use:   "duplicast",
	Short: "Desktop duplication screen recorder",
	Long: `duplicast records one monitor to an MP4 file using DXGI desktop
duplication, a delta-replay compositor, and a software H.264/AAC encoder.`,
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a monitor to an MP4 file",
	Run: func(cmd *cobra.Command, args []string) {
		runRecord()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recordable monitors and capture-capable microphones",
	Run: func(cmd *cobra.Command, args []string) {
		runList()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("duplicast v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the platform config dir's duplicast.yaml)")

	recordCmd.Flags().IntVar(&flagMonitor, "monitor", -1, "monitor index to record (flat across every adapter's outputs)")
	recordCmd.Flags().StringVar(&flagOut, "out", "", "output MP4 file path")
	recordCmd.Flags().IntVar(&flagFPS, "fps", 0, "frame rate")
	recordCmd.Flags().IntVar(&flagBitrate, "bitrate", 0, "video bitrate in bits/second")
	recordCmd.Flags().StringVar(&flagMic, "mic", "", "microphone endpoint ID from 'duplicast list' (empty = no audio track)")
	recordCmd.Flags().StringVar(&flagQuality, "quality", "", "resolution preset: auto, low, medium, high, hd720p, hd1080p, uhd2160p")
	recordCmd.Flags().StringVar(&flagAudioQual, "audio-quality", "", "audio quality preset: auto, low, medium, high")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging brings up the process-wide logger from cfg. Call after
// config.Load(); the CLI shell itself has no log file override flag, only
// what the config file/env supplies.
func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout
	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, 0, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")
}

// applyRecordFlags overlays any explicitly-set record flags on top of the
// loaded config, so flags win over file/env but an unset flag never
// clobbers a configured value.
func applyRecordFlags(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("monitor") {
		cfg.Monitor = flagMonitor
	}
	if flagOut != "" {
		cfg.FileName = flagOut
	}
	if flagFPS > 0 {
		cfg.FrameRate = flagFPS
	}
	if flagBitrate > 0 {
		cfg.BitRate = flagBitrate
	}
	if cmd.Flags().Changed("mic") {
		cfg.AudioEndpoint = flagMic
	}
	if flagQuality != "" {
		cfg.ResolutionOption = config.Quality(flagQuality)
	}
	if flagAudioQual != "" {
		cfg.AudioQuality = config.Quality(flagAudioQual)
	}
}

// cliNotifier prints the reason a recording stopped on its own, since the
// CLI shell has no higher-level supervisor to hand the notification to.
type cliNotifier struct{}

func (cliNotifier) OnRecordingStopped(code recorder.FatalErrorCode, err error) {
	log.Error("recording stopped", "reason", code, "error", err)
}

func runRecord() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyRecordFlags(cfg, recordCmd)

	if cfg.FileName == "" {
		cfg.FileName = defaultOutputName()
	}

	initLogging(cfg)

	log.Info("starting recording",
		"file", cfg.FileName,
		"monitor", cfg.Monitor,
		"fps", cfg.FrameRate,
		"bitrate", cfg.BitRate,
		"mic", cfg.AudioEndpoint != "",
	)

	thread, err := recorder.NewThread(*cfg, cliNotifier{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start recorder: %v\n", err)
		os.Exit(1)
	}

	thread.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("stopping recording")
	thread.Stop()
	thread.Wait()

	if code := thread.LastFatalError(); code != recorder.FatalNone {
		fmt.Fprintf(os.Stderr, "recording ended abnormally: %v\n", code)
		os.Exit(1)
	}

	log.Info("recording saved", "file", cfg.FileName)
}

// deviceList is the device-enumeration JSON of spec §6.
type deviceList struct {
	Monitors    []monitorEntry `json:"monitors"`
	Microphones []micEntry     `json:"microphones"`
}

type monitorEntry struct {
	Index    int    `json:"index"`
	Adapter  string `json:"adapter"`
	Output   string `json:"output"`
	Width    int32  `json:"width"`
	Height   int32  `json:"height"`
	Rotation int    `json:"rotation"`
}

type micEntry struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
}

func runList() {
	var list deviceList

	adapters, err := gpucore.EnumerateAdapters()
	if err != nil {
		log.Warn("enumerate adapters failed", "error", err)
	}
	index := 0
	for _, a := range adapters {
		monitors, mErr := duplication.MonitorsFromAdapter(a.Device, a.Name)
		if mErr != nil {
			log.Warn("enumerate monitors failed", "adapter", a.Name, "error", mErr)
			continue
		}
		for _, m := range monitors {
			list.Monitors = append(list.Monitors, monitorEntry{
				Index:    index,
				Adapter:  m.AdapterName,
				Output:   m.OutputName,
				Width:    m.Bounds.Width(),
				Height:   m.Bounds.Height(),
				Rotation: int(m.Rotation),
			})
			index++
		}
		gpucore.Release(a.Context)
		gpucore.Release(a.Device)
	}

	mics, err := audiocap.ListCaptureDevices()
	if err != nil {
		log.Warn("enumerate capture devices failed", "error", err)
	}
	for _, d := range mics {
		list.Microphones = append(list.Microphones, micEntry{Name: d.Name, Endpoint: d.Endpoint})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode device list: %v\n", err)
		os.Exit(1)
	}
}

func defaultOutputName() string {
	dir := config.GetDataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "duplicast-recording.mp4"
	}
	return dir + string(os.PathSeparator) + "duplicast-recording.mp4"
}
