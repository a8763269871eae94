package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/kwv/warpguard/warp"
)

// maxJobBytes bounds a request body; a 4K frame of row matrices is well under this
const maxJobBytes = 32 << 20

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(app *App) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status        string    `json:"status"`
			Timestamp     time.Time `json:"timestamp"`
			Cameras       int       `json:"cameras"`
			HasResults    bool      `json:"hasResults"`
			MQTTConnected bool      `json:"mqttConnected"`
		}{
			Status:        "ok",
			Timestamp:     time.Now(),
			Cameras:       len(app.Config.Cameras),
			HasResults:    app.StateTracker.HasResults(),
			MQTTConnected: app.MQTTClient != nil && app.MQTTClient.IsConnected(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Solve endpoint: report JSON, or GeoJSON with ?format=geojson
	mux.HandleFunc("/solve", func(w http.ResponseWriter, r *http.Request) {
		frame, res, ok := solveRequest(app, w, r)
		if !ok {
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		if r.URL.Query().Get("format") == "geojson" {
			data, err := warp.ContourGeoJSON(frame.Camera, res, app.Config.Solver.Density)
			if err != nil {
				log.Printf("Error encoding solve GeoJSON: %v", err)
				http.Error(w, "Failed to encode GeoJSON", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/geo+json")
			_, _ = w.Write(data)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(warp.NewFrameReport(frame.ID, frame.Camera, res)); err != nil {
			log.Printf("Error encoding solve report: %v", err)
		}
	})

	// Latest solve per camera
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(app.StateTracker.GetAll()); err != nil {
			log.Printf("Error encoding results: %v", err)
		}
	})

	// Overlay endpoints: POST solves a job, GET ?camera= draws the latest solve
	overlay := func(format string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var cam warp.CameraIntrinsics
			var res warp.SolveResult
			switch r.Method {
			case http.MethodGet:
				name := r.URL.Query().Get("camera")
				if name == "" {
					http.Error(w, "camera query parameter is required", http.StatusBadRequest)
					return
				}
				latest, ok := app.StateTracker.Get(name)
				if !ok {
					http.Error(w, fmt.Sprintf("No solve yet for camera %q", name), http.StatusNotFound)
					return
				}
				cam, res = latest.Camera, latest.Result
			default:
				frame, solved, ok := solveRequest(app, w, r)
				if !ok {
					return
				}
				cam, res = frame.Camera, solved
			}

			renderer, err := warp.NewOverlayRenderer(cam, app.Config.Solver, res)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			w.Header().Set("Cache-Control", "no-cache")
			if format == "png" {
				w.Header().Set("Content-Type", "image/png")
				err = renderer.RenderToPNG(w)
			} else {
				w.Header().Set("Content-Type", "image/svg+xml")
				err = renderer.RenderToSVG(w)
			}
			if err != nil {
				log.Printf("Error encoding overlay %s: %v", format, err)
			}
		}
	}
	mux.HandleFunc("/overlay.svg", overlay("svg"))
	mux.HandleFunc("/overlay.png", overlay("png"))

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}

// solveRequest decodes a POSTed frame job and solves it.
// On failure it has already written the error response.
func solveRequest(app *App, w http.ResponseWriter, r *http.Request) (warp.Frame, warp.SolveResult, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "POST a frame job", http.StatusMethodNotAllowed)
		return warp.Frame{}, warp.SolveResult{}, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJobBytes))
	if err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		http.Error(w, fmt.Sprintf("Reading request body: %v", err), code)
		return warp.Frame{}, warp.SolveResult{}, false
	}

	job, err := warp.ParseJob(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return warp.Frame{}, warp.SolveResult{}, false
	}

	frame, res, err := app.SolveJob(job)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return warp.Frame{}, warp.SolveResult{}, false
	}
	return frame, res, true
}
