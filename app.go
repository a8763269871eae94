package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/warpguard/warp"
)

// App encapsulates the application state and dependencies
type App struct {
	Config       *warp.Config
	MQTTClient   *warp.MQTTClient
	Publisher    *warp.Publisher
	StateTracker *warp.StateTracker

	// CLI Flags (effectively dependencies)
	ConfigFile  string
	JobFiles    []string
	RenderFile  string
	GeoJSONFile string
	HttpPort    int
	Workers     int
	MqttMode    bool
	HttpMode    bool

	Out io.Writer

	slots chan struct{} // bounds concurrent solves in service mode
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{Out: os.Stdout}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.JobFiles = opts.JobFiles
	a.RenderFile = opts.RenderFile
	a.GeoJSONFile = opts.GeoJSONFile
	a.HttpPort = opts.HttpPort
	a.Workers = opts.Workers
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// loadConfig reads ConfigFile unless a config was injected
func (a *App) loadConfig() error {
	if a.Config == nil {
		config, err := warp.LoadConfig(a.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w (looked at %s)", err, a.ConfigFile)
		}
		log.Printf("Loaded config from %s (%d cameras)", a.ConfigFile, len(config.Cameras))
		a.Config = config
	}
	if a.Workers <= 0 {
		a.Workers = a.Config.Workers
	}
	if a.Workers <= 0 {
		a.Workers = warp.DefaultWorkers
	}
	if a.slots == nil {
		a.slots = make(chan struct{}, a.Workers)
	}
	if a.StateTracker == nil {
		if a.Config.StateCache != "" {
			a.StateTracker = warp.NewStateTrackerWithCache(a.Config.StateCache)
			log.Printf("Using state cache %s", a.Config.StateCache)
		} else {
			a.StateTracker = warp.NewStateTracker()
		}
	}
	return nil
}

// SolveJob resolves a job against the config and runs the solver.
// Concurrent callers beyond Workers wait for a free slot. A successful
// solve becomes the latest result for its camera.
func (a *App) SolveJob(job *warp.FrameJob) (warp.Frame, warp.SolveResult, error) {
	frame, err := job.Frame(a.Config)
	if err != nil {
		return warp.Frame{}, warp.SolveResult{}, err
	}

	a.slots <- struct{}{}
	defer func() { <-a.slots }()

	start := time.Now()
	res, err := warp.Solve(frame.Zoom, frame.Rotations, frame.Camera, a.Config.Solver)
	if err != nil {
		return frame, warp.SolveResult{}, fmt.Errorf("job %s: %w", job.ID, err)
	}
	log.Printf("Solved job %s (%s): ratio=%.4f zoom=%.3f %s after %d iterations in %v",
		job.ID, frame.Camera.Name, res.Ratio, res.Zoom, res.Status, res.Iterations, time.Since(start))
	if res.FoldBacks > 0 {
		log.Printf("Warning: job %s had %d fold-back samples; check the inverse distortion coefficients for %s",
			job.ID, res.FoldBacks, frame.Camera.Name)
	}
	a.StateTracker.Update(job.ID, frame.Camera, res)
	return frame, res, nil
}

// RunJobs solves every job file as one batch and prints a report per frame.
// Overlay and GeoJSON outputs are written for each frame that solved.
func (a *App) RunJobs() error {
	if err := a.loadConfig(); err != nil {
		return err
	}

	var frames []warp.Frame
	for _, path := range a.JobFiles {
		job, err := warp.ParseJobFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		frame, err := job.Frame(a.Config)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		frames = append(frames, frame)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := warp.SolveBatch(ctx, frames, a.Config.Solver, a.Workers)

	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	failed := 0
	for i, r := range results {
		if r.Err != nil {
			log.Printf("Error solving %s: %v", r.ID, r.Err)
			failed++
			continue
		}
		cam := frames[i].Camera
		a.StateTracker.Update(r.ID, cam, r.Result)
		if err := enc.Encode(warp.NewFrameReport(r.ID, cam, r.Result)); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		if err := a.writeOutputs(r.ID, cam, r.Result, len(results) > 1); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d frames failed", failed, len(results))
	}
	return nil
}

func (a *App) writeOutputs(id string, cam warp.CameraIntrinsics, res warp.SolveResult, multi bool) error {
	if a.RenderFile != "" {
		path := outputPath(a.RenderFile, id, multi)
		if err := a.writeOverlay(path, cam, res); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Overlay saved to %s\n", path)
	}

	if a.GeoJSONFile != "" {
		path := outputPath(a.GeoJSONFile, id, multi)
		data, err := warp.ContourGeoJSON(cam, res, a.Config.Solver.Density)
		if err != nil {
			return fmt.Errorf("encoding GeoJSON for %s: %w", id, err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(a.Out, "GeoJSON saved to %s\n", path)
	}
	return nil
}

func (a *App) writeOverlay(path string, cam warp.CameraIntrinsics, res warp.SolveResult) error {
	renderer, err := warp.NewOverlayRenderer(cam, a.Config.Solver, res)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = renderer.RenderToPNG(f)
	case ".svg":
		err = renderer.RenderToSVG(f)
	default:
		return fmt.Errorf("unsupported overlay format %q (use .svg or .png)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("rendering overlay %s: %w", path, err)
	}
	return nil
}

// outputPath inserts the frame id before the extension when several frames share one output flag
func outputPath(path, id string, multi bool) string {
	if !multi {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + id + ext
}

// handleJob is the MQTT job handler: solve, then publish the report
func (a *App) handleJob(job *warp.FrameJob, err error) {
	if err != nil {
		log.Printf("[MQTT] Dropping malformed job: %v", err)
		return
	}

	frame, res, err := a.SolveJob(job)
	if err != nil {
		log.Printf("[MQTT] Error solving job %s: %v", job.ID, err)
		return
	}

	if a.Publisher != nil {
		if err := a.Publisher.PublishReport(warp.NewFrameReport(job.ID, frame.Camera, res)); err != nil {
			log.Printf("[MQTT] Error publishing result for job %s: %v", job.ID, err)
		}
	}
}

// RunService starts the MQTT and/or HTTP services and blocks until interrupted
func (a *App) RunService() error {
	fmt.Fprintln(a.Out, "Starting warpguard service...")

	if !a.MqttMode && !a.HttpMode {
		return fmt.Errorf("service mode needs -mqtt and/or -http")
	}
	if err := a.loadConfig(); err != nil {
		return err
	}

	if a.MqttMode {
		client, err := warp.InitMQTT(a.Config, a.handleJob)
		if err != nil {
			return fmt.Errorf("failed to initialize MQTT: %w", err)
		}
		if client == nil {
			return fmt.Errorf("MQTT broker not configured in %s", a.ConfigFile)
		}
		a.MQTTClient = client
		a.Publisher = warp.NewPublisher(client.GetClient(), a.Config.MQTT.PublishPrefix)
		fmt.Fprintln(a.Out, "MQTT result publisher initialized")
	}

	var server *http.Server
	if a.HttpMode {
		server = &http.Server{
			Addr:              fmt.Sprintf(":%d", a.HttpPort),
			Handler:           newHTTPServer(a),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			fmt.Fprintf(a.Out, "HTTP server starting on %s\n", server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("HTTP server error: %v", err)
			}
		}()
	}

	a.printServiceInfo()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Fprintln(a.Out, "\nShutting down service...")
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down HTTP server: %v", err)
		}
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Fprintln(a.Out, "Service stopped")
	return nil
}

func (a *App) printServiceInfo() {
	fmt.Fprintln(a.Out, "\nService Running")
	fmt.Fprintln(a.Out, "===============")

	if a.MqttMode {
		topic := a.Config.MQTT.JobTopic
		if topic == "" {
			topic = warp.DefaultJobTopic
		}
		prefix := a.Config.MQTT.PublishPrefix
		if prefix == "" {
			prefix = "warpguard"
		}
		fmt.Fprintln(a.Out, "\nMQTT:")
		fmt.Fprintf(a.Out, "  Job topic: %s\n", topic)
		fmt.Fprintf(a.Out, "  Publishing to: %s/{camera}/result\n", prefix)
		fmt.Fprintf(a.Out, "  Combined results: %s/results\n", prefix)
	}

	if a.HttpMode {
		fmt.Fprintf(a.Out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Fprintln(a.Out, "  GET  /health          - Health check")
		fmt.Fprintln(a.Out, "  POST /solve           - Solve a frame job (?format=geojson for GeoJSON)")
		fmt.Fprintln(a.Out, "  POST /overlay.svg     - Solve a frame job and draw it")
		fmt.Fprintln(a.Out, "  POST /overlay.png     - Same overlay as PNG")
		fmt.Fprintln(a.Out, "  GET  /overlay.svg?camera=NAME - Latest solve for a camera (also .png)")
		fmt.Fprintln(a.Out, "  GET  /results         - Latest solve per camera")
	}

	fmt.Fprintf(a.Out, "\nCameras: %d, concurrent solves: %d\n", len(a.Config.Cameras), a.Workers)
	fmt.Fprintln(a.Out, "\nPress Ctrl+C to stop")
}
