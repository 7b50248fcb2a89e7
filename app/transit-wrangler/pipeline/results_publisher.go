package pipeline

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// StepResult summarizes one completed pipeline step.
type StepResult struct {
	Step           string    `json:"step"`
	RowsRead       int64     `json:"rows_read"`
	RowsWritten    int64     `json:"rows_written"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	CompletedAt    time.Time `json:"completed_at"`
}

// resultsPublisher sends step summaries over NATS so downstream consumers can
// react to pipeline progress. With no connection it only logs.
type resultsPublisher struct {
	log            *log.Logger
	natsConnection *nats.Conn
}

// makeResultsPublisher connects to NATS when a URL is configured. An empty
// URL disables publishing.
func makeResultsPublisher(log *log.Logger, natsURL string) (*resultsPublisher, error) {
	publisher := resultsPublisher{log: log}
	if natsURL == "" {
		return &publisher, nil
	}
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	publisher.natsConnection = conn
	return &publisher, nil
}

func (r *resultsPublisher) close() {
	if r.natsConnection != nil {
		r.natsConnection.Close()
	}
}

// publish sends one StepResult over NATS. Publish failures are logged rather
// than failing the run.
func (r *resultsPublisher) publish(result StepResult) {
	r.log.Printf("pipeline: step %s read %d rows, wrote %d rows in %.1fs",
		result.Step, result.RowsRead, result.RowsWritten, result.ElapsedSeconds)
	if r.natsConnection == nil {
		return
	}
	jsonData, err := json.Marshal(result)
	if err != nil {
		r.log.Printf("failed to marshal StepResult in resultsPublisher.publish, error:%v", err)
		return
	}
	err = r.natsConnection.Publish("wrangler-step-results", jsonData)
	if err != nil {
		r.log.Printf("failed to send StepResult in resultsPublisher.publish, error:%v", err)
	}
}
