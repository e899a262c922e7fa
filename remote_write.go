package vigil

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
)

const maxRemoteWriteBody = 32 << 20

// RemoteWriteHandler ingests Prometheus remote-write requests into the
// pipeline's per-stream rolling buffers. The entity is taken from the
// "entity_id" label, falling back to "instance", then "job"; streams with
// no identifying label are attributed to "unknown".
type RemoteWriteHandler struct {
	pipeline *AlertPipeline
	logger   *slog.Logger
}

// NewRemoteWriteHandler creates a remote-write ingest handler.
func NewRemoteWriteHandler(p *AlertPipeline) *RemoteWriteHandler {
	return &RemoteWriteHandler{
		pipeline: p,
		logger:   slog.Default().With("component", "remote_write"),
	}
}

// ServeHTTP decodes a snappy-compressed remote-write request and observes
// every sample.
func (h *RemoteWriteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRemoteWriteBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	decoded, err := snappy.Decode(nil, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req prompb.WriteRequest
	if err := req.Unmarshal(decoded); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n := h.ingest(&req)
	h.logger.Debug("remote write ingested", "timeseries", len(req.Timeseries), "samples", n)
	w.WriteHeader(http.StatusAccepted)
}

func (h *RemoteWriteHandler) ingest(req *prompb.WriteRequest) int {
	n := 0
	for i := range req.Timeseries {
		ts := &req.Timeseries[i]
		var metric, entity, instance, job string
		for _, label := range ts.Labels {
			switch label.Name {
			case "__name__":
				metric = label.Value
			case "entity_id":
				entity = label.Value
			case "instance":
				instance = label.Value
			case "job":
				job = label.Value
			}
		}
		if metric == "" {
			continue
		}
		// entity_id wins, then instance, then job, whatever the label order.
		if entity == "" {
			entity = instance
		}
		if entity == "" {
			entity = job
		}
		if entity == "" {
			entity = "unknown"
		}

		id := StreamID{EntityID: entity, Metric: metric}
		for _, sample := range ts.Samples {
			h.pipeline.Observe(id, Sample{Timestamp: sample.Timestamp, Value: sample.Value})
			n++
		}
	}
	return n
}
