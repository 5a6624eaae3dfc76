package bme280

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Sampler takes one complete reading. *Dev implements it.
type Sampler interface {
	Sample() (Reading, error)
}

// ReadingMessage is the JSON document broadcast for every reading.
type ReadingMessage struct {
	Type        string  `json:"type"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	Timestamp   int64   `json:"timestamp"`
}

// Server polls a sensor, records the readings and publishes them over
// websocket and prometheus.
type Server struct {
	sampler  Sampler
	recorder *Recorder
	hub      *Hub
	registry *prometheus.Registry
	metrics  *metrics
	interval time.Duration
}

// NewServer returns a Server. recorder may be nil to disable storage and
// the /history endpoint.
func NewServer(sampler Sampler, recorder *Recorder, interval time.Duration) *Server {
	registry := prometheus.NewRegistry()
	return &Server{
		sampler:  sampler,
		recorder: recorder,
		hub:      NewHub(),
		registry: registry,
		metrics:  newMetrics(registry),
		interval: interval,
	}
}

// Handler returns the HTTP routes: /ws, /latest, /history and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("/latest", s.handleLatest)
	mux.HandleFunc("/history", s.handleHistory)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	return mux
}

// Run samples the sensor every interval until done is closed.
func (s *Server) Run(done <-chan struct{}) {
	go s.hub.Run(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.poll()
	for {
		select {
		case <-ticker.C:
			s.poll()
		case <-done:
			return
		}
	}
}

func (s *Server) poll() {
	reading, err := s.sampler.Sample()
	if err != nil {
		s.metrics.readErrors.Inc()
		log.Errorf("Error reading BME280: %v", err)
		return
	}
	s.metrics.observe(reading)

	if s.recorder != nil {
		if err := s.recorder.Record(reading); err != nil {
			log.Errorf("Error writing to database: %v", err)
		}
	}

	s.hub.Broadcast(newReadingMessage(reading))
}

func newReadingMessage(reading Reading) ReadingMessage {
	return ReadingMessage{
		Type:        "BME280",
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		Pressure:    reading.Pressure,
		Timestamp:   reading.Time.UnixMicro(),
	}
}

// handleLatest serves the last recorded reading in the same form as the
// websocket messages.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.recorder == nil {
		http.Error(w, "No recorder configured", http.StatusNotFound)
		return
	}
	reading, ok := s.recorder.Last()
	if !ok {
		http.Error(w, "No reading recorded yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newReadingMessage(reading)); err != nil {
		log.Warnf("Error writing latest reading: %v", err)
	}
}

// handleHistory serves the stored readings between the start and end query
// parameters, in microseconds since the epoch. Both default to an open
// bound.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.recorder == nil {
		http.Error(w, "No recorder configured", http.StatusNotFound)
		return
	}

	start, err := queryInt(r, "start", 0)
	if err != nil {
		http.Error(w, "Invalid start", http.StatusBadRequest)
		return
	}
	end, err := queryInt(r, "end", time.Now().UnixMicro())
	if err != nil {
		http.Error(w, "Invalid end", http.StatusBadRequest)
		return
	}

	history, err := s.recorder.History(start, end)
	if err != nil {
		log.Errorf("Error reading history: %v", err)
		http.Error(w, "Failed to read history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []HistoricalData{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(history); err != nil {
		log.Warnf("Error writing history: %v", err)
	}
}

func queryInt(r *http.Request, name string, def int64) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
