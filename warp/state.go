package warp

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SolvedFrame is the most recent solve for one camera
type SolvedFrame struct {
	JobID     string           `json:"jobId"`
	Camera    CameraIntrinsics `json:"camera"`
	Result    SolveResult      `json:"result"`
	Timestamp time.Time        `json:"timestamp"`
}

// StateTracker keeps the latest solve per camera for HTTP endpoints
type StateTracker struct {
	mu        sync.RWMutex
	saveMu    sync.Mutex
	frames    map[string]*SolvedFrame // camera name -> latest solve
	cachePath string                  // empty disables persistence
}

// NewStateTracker creates a new state tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{
		frames: make(map[string]*SolvedFrame),
	}
}

// NewStateTrackerWithCache creates a state tracker that persists to cachePath.
// If the file exists, the cached solves are loaded on creation.
func NewStateTrackerWithCache(cachePath string) *StateTracker {
	st := NewStateTracker()
	st.cachePath = cachePath
	if cachePath != "" {
		if frames, err := LoadState(cachePath); err == nil {
			st.frames = frames
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: ignoring state cache %s: %v", cachePath, err)
		}
	}
	return st
}

// Update records a solve as the latest for its camera
func (st *StateTracker) Update(jobID string, cam CameraIntrinsics, res SolveResult) {
	st.mu.Lock()
	st.frames[cam.Name] = &SolvedFrame{
		JobID:     jobID,
		Camera:    cam,
		Result:    res,
		Timestamp: time.Now(),
	}
	st.mu.Unlock()

	if st.cachePath == "" {
		return
	}
	// snapshot inside saveMu so saves land in update order
	st.saveMu.Lock()
	defer st.saveMu.Unlock()
	if err := SaveState(st.GetAll(), st.cachePath); err != nil {
		log.Printf("Warning: failed to save state cache: %v", err)
	}
}

// Get returns a copy of the latest solve for a camera
func (st *StateTracker) Get(camera string) (*SolvedFrame, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	f, ok := st.frames[camera]
	if !ok {
		return nil, false
	}
	c := *f
	return &c, true
}

// GetAll returns copies of the latest solves keyed by camera
func (st *StateTracker) GetAll() map[string]*SolvedFrame {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.copyFrames()
}

// HasResults returns true once any frame has been solved
func (st *StateTracker) HasResults() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.frames) > 0
}

func (st *StateTracker) copyFrames() map[string]*SolvedFrame {
	result := make(map[string]*SolvedFrame, len(st.frames))
	for k, v := range st.frames {
		c := *v
		result[k] = &c
	}
	return result
}

// SaveState writes the latest solves to disk as JSON
func SaveState(frames map[string]*SolvedFrame, path string) error {
	data, err := json.MarshalIndent(frames, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write state cache: %w", err)
	}
	return nil
}

// LoadState reads solves written by SaveState. Null entries are dropped.
func LoadState(path string) (map[string]*SolvedFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	frames := make(map[string]*SolvedFrame)
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("unmarshal state cache: %w", err)
	}
	if frames == nil {
		frames = make(map[string]*SolvedFrame)
	}
	for camera, f := range frames {
		if f == nil {
			delete(frames, camera)
		}
	}
	return frames, nil
}
