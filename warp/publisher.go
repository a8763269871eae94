package warp

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// FrameReport is the published summary of one solved frame
type FrameReport struct {
	JobID      string      `json:"jobId"`
	Camera     string      `json:"camera"`
	Ratio      float64     `json:"ratio"`
	Zoom       float64     `json:"zoom"`
	Status     SolveStatus `json:"status"`
	Iterations int         `json:"iterations"`
	FoldBacks  int         `json:"foldBacks"`
	Safe       bool        `json:"safe"`
	Contour    Contour     `json:"contour,omitempty"`
	Timestamp  int64       `json:"timestamp"`
}

// NewFrameReport summarizes a solve for publishing
func NewFrameReport(jobID string, cam CameraIntrinsics, res SolveResult) *FrameReport {
	return &FrameReport{
		JobID:      jobID,
		Camera:     cam.Name,
		Ratio:      res.Ratio,
		Zoom:       res.Zoom,
		Status:     res.Status,
		Iterations: res.Iterations,
		FoldBacks:  res.FoldBacks,
		Safe:       IsSafe(res.Contour, cam),
		Contour:    res.Contour,
		Timestamp:  time.Now().Unix(),
	}
}

// Publisher publishes solve results to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	latest        map[string]*FrameReport // camera name -> last report
	mu            sync.RWMutex
}

// NewPublisher creates a result publisher.
// The prefix comes from MQTT_PUBLISH_PREFIX, then prefix, then "warpguard".
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = "warpguard"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // results are superseded by the next frame
		retain:        true, // late subscribers see the latest ratio
		latest:        make(map[string]*FrameReport),
	}
}

// PublishReport publishes to {prefix}/{camera}/result and the combined {prefix}/results topic
func (p *Publisher) PublishReport(report *FrameReport) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	p.mu.Lock()
	p.latest[report.Camera] = report
	p.mu.Unlock()

	topic := fmt.Sprintf("%s/%s/result", p.publishPrefix, report.Camera)
	if err := p.publishJSON(topic, report); err != nil {
		log.Printf("Error publishing result for %s: %v", report.Camera, err)
		return err
	}
	log.Printf("Published result for %s job %s: ratio=%.4f %s", report.Camera, report.JobID, report.Ratio, report.Status)

	if err := p.publishCombined(); err != nil {
		log.Printf("Error publishing combined results: %v", err)
		return err
	}
	return nil
}

func (p *Publisher) publishCombined() error {
	p.mu.RLock()
	reports := make([]*FrameReport, 0, len(p.latest))
	for _, r := range p.latest {
		summary := *r
		summary.Contour = nil
		reports = append(reports, &summary)
	}
	p.mu.RUnlock()

	message := map[string]interface{}{
		"cameras":   reports,
		"timestamp": time.Now().Unix(),
	}
	return p.publishJSON(fmt.Sprintf("%s/results", p.publishPrefix), message)
}

func (p *Publisher) publishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// GetLatest returns the last report published for a camera
func (p *Publisher) GetLatest(camera string) (*FrameReport, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.latest[camera]
	return r, ok
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
