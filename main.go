package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
	ConfigFile  string
	JobFiles    []string
	RenderFile  string
	GeoJSONFile string
	HttpPort    int
	Workers     int
	MqttMode    bool
	HttpMode    bool
}

// Runner is the set of modes main can dispatch to
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunJobs() error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if err == flag.ErrHelp {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("warpguard", flag.ContinueOnError)
	fs.SetOutput(out)

	configFile := fs.String("config", "config.yaml", "Path to configuration file")
	jobFiles := fs.String("job", "", "Comma-separated frame job JSON files to solve and exit")
	renderFile := fs.String("render", "", "Write an overlay of the solve (.svg or .png) for -job")
	geojsonFile := fs.String("geojson", "", "Write the solved contour as GeoJSON for -job")
	mqttMode := fs.Bool("mqtt", false, "Run the MQTT job service")
	httpMode := fs.Bool("http", false, "Run the HTTP solve service")
	httpPort := fs.Int("http-port", 8080, "HTTP server port")
	workers := fs.Int("workers", 0, "Concurrent frame solves (0 uses the config value)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "warpguard version: %s\n", Version)

	opts := AppOptions{
		ConfigFile:  *configFile,
		RenderFile:  *renderFile,
		GeoJSONFile: *geojsonFile,
		HttpPort:    *httpPort,
		Workers:     *workers,
		MqttMode:    *mqttMode,
		HttpMode:    *httpMode,
	}
	for _, p := range strings.Split(*jobFiles, ",") {
		if p = strings.TrimSpace(p); p != "" {
			opts.JobFiles = append(opts.JobFiles, p)
		}
	}
	app.ApplyOptions(opts)

	if len(opts.JobFiles) > 0 {
		return app.RunJobs()
	}
	if opts.MqttMode || opts.HttpMode {
		return app.RunService()
	}

	fmt.Fprintln(out, "Use -job=frame.json to solve frame jobs and print the results")
	fmt.Fprintln(out, "Use -job=frame.json -render=overlay.svg to also draw the solve")
	fmt.Fprintln(out, "Use -mqtt to consume jobs from the MQTT job topic")
	fmt.Fprintln(out, "Use -http to serve POST /solve")
	fmt.Fprintln(out, "Use -mqtt -http to run both together")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - cameras, solver parameters and MQTT settings")
	return nil
}
