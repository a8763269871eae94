package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type mockApp struct {
	opts   AppOptions
	called map[string]bool
	err    error
}

func newMockApp() *mockApp {
	return &mockApp{
		called: make(map[string]bool),
	}
}

func (m *mockApp) ApplyOptions(opts AppOptions) { m.opts = opts }
func (m *mockApp) RunJobs() error               { m.called["RunJobs"] = true; return m.err }
func (m *mockApp) RunService() error            { m.called["RunService"] = true; return m.err }

func TestRun_Flags(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedCalled string
		verifyOpts     func(*testing.T, AppOptions)
	}{
		{
			name:           "SingleJob",
			args:           []string{"-job", "frame.json", "-config", "rig.yaml"},
			expectedCalled: "RunJobs",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if len(opts.JobFiles) != 1 || opts.JobFiles[0] != "frame.json" {
					t.Errorf("expected JobFiles [frame.json], got %v", opts.JobFiles)
				}
				if opts.ConfigFile != "rig.yaml" {
					t.Errorf("expected ConfigFile rig.yaml, got %s", opts.ConfigFile)
				}
			},
		},
		{
			name:           "BatchWithOutputs",
			args:           []string{"-job", "a.json, b.json,,", "-render", "out.svg", "-geojson", "out.geojson", "-workers", "8"},
			expectedCalled: "RunJobs",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if len(opts.JobFiles) != 2 || opts.JobFiles[1] != "b.json" {
					t.Errorf("expected JobFiles [a.json b.json], got %v", opts.JobFiles)
				}
				if opts.RenderFile != "out.svg" {
					t.Errorf("expected RenderFile out.svg, got %s", opts.RenderFile)
				}
				if opts.GeoJSONFile != "out.geojson" {
					t.Errorf("expected GeoJSONFile out.geojson, got %s", opts.GeoJSONFile)
				}
				if opts.Workers != 8 {
					t.Errorf("expected Workers 8, got %d", opts.Workers)
				}
			},
		},
		{
			name:           "MqttMode",
			args:           []string{"--mqtt", "--http-port", "9090"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.MqttMode {
					t.Error("expected MqttMode true")
				}
				if opts.HttpPort != 9090 {
					t.Errorf("expected HttpPort 9090, got %d", opts.HttpPort)
				}
			},
		},
		{
			name:           "HttpMode",
			args:           []string{"-http"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.HttpMode || opts.MqttMode {
					t.Errorf("expected only HttpMode, got %+v", opts)
				}
				if opts.HttpPort != 8080 {
					t.Errorf("expected default HttpPort 8080, got %d", opts.HttpPort)
				}
				if opts.ConfigFile != "config.yaml" {
					t.Errorf("expected default ConfigFile config.yaml, got %s", opts.ConfigFile)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp()
			var out bytes.Buffer
			err := run(tt.args, &out, app)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}

			if !app.called[tt.expectedCalled] {
				t.Errorf("expected %s to be called", tt.expectedCalled)
			}
			if len(app.called) != 1 {
				t.Errorf("expected exactly one mode, got %v", app.called)
			}

			if tt.verifyOpts != nil {
				tt.verifyOpts(t, app.opts)
			}
		})
	}
}

func TestRun_PropagatesModeError(t *testing.T) {
	app := newMockApp()
	app.err = errors.New("boom")
	var out bytes.Buffer
	if err := run([]string{"-job", "x.json"}, &out, app); err == nil || err.Error() != "boom" {
		t.Errorf("expected mode error, got %v", err)
	}
}

func TestRun_Help(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--help"}, &out, app)
	if err == nil {
		t.Error("expected error from --help, got nil")
	}
	if !strings.Contains(out.String(), "Usage of warpguard") {
		t.Errorf("expected usage info in output, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "-mqtt") {
		t.Errorf("expected -mqtt in usage, got: %s", out.String())
	}
}

func TestRun_Default(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{}, &out, app)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expectedPrefix := "warpguard version: " + Version
	if !strings.Contains(out.String(), expectedPrefix) {
		t.Errorf("expected output to contain version, got: %s", out.String())
	}
	if len(app.called) != 0 {
		t.Errorf("no mode should run without flags, got %v", app.called)
	}
}

func TestMain_Execute(t *testing.T) {
	// Smoke test to ensure version is set
	if Version == "" {
		t.Error("expected Version to be set")
	}
}
