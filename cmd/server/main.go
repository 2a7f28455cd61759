package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/miretskiy/colocsim/simulator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

// Client message types: "start" (optional config), "pause", "reset"
type ClientMessage struct {
	Type   string               `json:"type"`
	Config *simulator.SimConfig `json:"config,omitempty"`
}

// UnmarshalJSON fills fields missing from a start config with defaults
func (m *ClientMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   string          `json:"type"`
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Type = raw.Type
	m.Config = nil
	if len(raw.Config) == 0 || string(raw.Config) == "null" {
		return nil
	}
	config := simulator.DefaultConfig()
	if err := json.Unmarshal(raw.Config, &config); err != nil {
		return err
	}
	m.Config = &config
	return nil
}

// SampleMessage is one co-located checkpoint across all tenants
type SampleMessage struct {
	Calls      int       `json:"calls"`      // Co-located calls processed so far
	TotalCalls int       `json:"totalCalls"` // Length of the co-located stream
	HitRates   []float64 `json:"hitRates"`   // Indexed by tenant-1
}

// Server message types: "status", "designated", "sample", "done", "error"
type ServerMessage struct {
	Type       string                       `json:"type"`
	Running    *bool                        `json:"running,omitempty"`
	Config     *simulator.SimConfig         `json:"config,omitempty"`
	Designated []simulator.DesignatedResult `json:"designated,omitempty"`
	Sample     *SampleMessage               `json:"sample,omitempty"`
	Results    *simulator.Results           `json:"results,omitempty"`
	Error      string                       `json:"error,omitempty"`
}

// serverOptions controls pacing of the UI loop
type serverOptions struct {
	addr           string
	tickInterval   time.Duration // Wall-clock time between UI updates
	periodsPerTick int           // Recording periods simulated per UI update
}

// simState manages the simulation state and UI pacing
type simState struct {
	sim     *simulator.Simulator
	running bool
	paused  bool
	mu      sync.Mutex
	stopCh  chan struct{}
}

func newSimState(config simulator.SimConfig) (*simState, error) {
	sim, err := newPreparedSimulator(config)
	if err != nil {
		return nil, err
	}
	return &simState{
		sim:    sim,
		stopCh: make(chan struct{}),
	}, nil
}

func newPreparedSimulator(config simulator.SimConfig) (*simulator.Simulator, error) {
	sim, err := simulator.NewSimulator(config)
	if err != nil {
		return nil, err
	}
	sim.LogEvent = func(msg string) {
		logrus.Debug(msg)
	}
	if err := sim.Reset(); err != nil {
		return nil, err
	}
	return sim, nil
}

// start begins the simulation, replacing it first if a config is given
func (s *simState) start(config *simulator.SimConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if config != nil {
		sim, err := newPreparedSimulator(*config)
		if err != nil {
			return err
		}
		s.sim = sim
	}
	s.running = true
	s.paused = false
	return nil
}

// pause pauses the simulation
func (s *simState) pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// reset replays the same run from the beginning
func (s *simState) reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.paused = false
	return s.sim.Reset()
}

// isRunning returns true if simulation is running and not paused
func (s *simState) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && !s.paused
}

// getConfig returns the current simulator configuration
func (s *simState) getConfig() simulator.SimConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Config()
}

// designated returns the standalone baselines of the current run
func (s *simState) designated() []simulator.DesignatedResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Designated()
}

// step advances the co-located run by up to n recording periods and reports
// the latest sample and whether the run finished
func (s *simState) step(n int) (*SampleMessage, *simulator.Results) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.paused {
		return nil, nil
	}
	for i := 0; i < n && s.sim.Step(); i++ {
	}

	latest := s.sim.Latest()
	sample := &SampleMessage{
		Calls:      s.sim.Processed(),
		TotalCalls: s.sim.TotalCalls(),
		HitRates:   make([]float64, len(latest)),
	}
	for i, l := range latest {
		sample.HitRates[i] = l.HitRate
	}

	if !s.sim.Done() {
		return sample, nil
	}
	s.running = false
	return sample, s.sim.Results()
}

// stop signals the UI loop to stop
func (s *simState) stop() {
	close(s.stopCh)
}

// uiUpdateLoop periodically steps the simulation and sends samples to the client.
// This runs in its own goroutine and controls UI pacing.
func uiUpdateLoop(conn *safeConn, state *simState, opts serverOptions) {
	ticker := time.NewTicker(opts.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-state.stopCh:
			logrus.Debug("UI update loop stopping")
			return

		case <-ticker.C:
			sample, results := state.step(opts.periodsPerTick)
			if sample == nil {
				continue
			}
			updatePrometheusMetrics(sample)
			if err := conn.WriteJSON(ServerMessage{Type: "sample", Sample: sample}); err != nil {
				logrus.WithError(err).Warn("Error sending sample")
				return
			}
			if results != nil {
				if err := conn.WriteJSON(ServerMessage{Type: "done", Results: results}); err != nil {
					logrus.WithError(err).Warn("Error sending results")
					return
				}
				logrus.WithField("calls", sample.Calls).Info("Co-located run finished")
			}
		}
	}
}

// safeConn wraps a WebSocket connection with a mutex to prevent concurrent writes
type safeConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

func (sc *safeConn) WriteJSON(v interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.Conn.WriteJSON(v)
}

func sendStatus(conn *safeConn, state *simState) error {
	running := state.isRunning()
	cfg := state.getConfig()
	return conn.WriteJSON(ServerMessage{Type: "status", Running: &running, Config: &cfg})
}

func sendDesignated(conn *safeConn, state *simState) error {
	designated := state.designated()
	updateDesignatedMetrics(designated)
	return conn.WriteJSON(ServerMessage{Type: "designated", Designated: designated})
}

func handleWebSocket(opts serverOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.WithError(err).Warn("Error upgrading connection")
			return
		}
		defer conn.Close()

		// Wrap connection with mutex for safe concurrent writes
		safeConn := &safeConn{Conn: conn}
		logrus.WithField("remote", r.RemoteAddr).Info("Client connected")

		state, err := newSimState(simulator.DefaultConfig())
		if err != nil {
			logrus.WithError(err).Error("Error creating simulator")
			return
		}
		if err := sendStatus(safeConn, state); err != nil {
			logrus.WithError(err).Warn("Error sending status")
			return
		}

		go uiUpdateLoop(safeConn, state, opts)

		// Handle messages from client
		for {
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.WithError(err).Warn("Error reading message")
				}
				break
			}

			logrus.WithField("type", msg.Type).Debug("Received command")

			switch msg.Type {
			case "start":
				if err := state.start(msg.Config); err != nil {
					logrus.WithError(err).Warn("Rejected configuration")
					safeConn.WriteJSON(ServerMessage{Type: "error", Error: err.Error()})
					continue
				}
				logrus.Info("Simulator started")
				sendStatus(safeConn, state)
				sendDesignated(safeConn, state)

			case "pause":
				state.pause()
				logrus.Info("Simulator paused")
				sendStatus(safeConn, state)

			case "reset":
				if err := state.reset(); err != nil {
					safeConn.WriteJSON(ServerMessage{Type: "error", Error: err.Error()})
					continue
				}
				logrus.Info("Simulator reset")
				sendStatus(safeConn, state)

			default:
				safeConn.WriteJSON(ServerMessage{Type: "error", Error: fmt.Sprintf("unknown command %q", msg.Type)})
			}
		}

		// Clean up
		state.stop()
		logrus.Info("Client disconnected")
	}
}

func quitHandler(w http.ResponseWriter, r *http.Request) {
	logrus.Info("Shutdown requested via /quitquitquit")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Server shutting down...")

	go func() {
		time.Sleep(100 * time.Millisecond)
		logrus.Info("Server stopped")
		os.Exit(0)
	}()
}

func newServeMux(opts serverOptions) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handleWebSocket(opts))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/quitquitquit", quitHandler)
	return mux
}

func main() {
	opts := serverOptions{}
	var logLevel string

	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Stream co-located cache simulations over WebSocket",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			logrus.SetLevel(level)
			if opts.tickInterval <= 0 || opts.periodsPerTick < 1 {
				return fmt.Errorf("tick interval and periods per tick must be positive")
			}

			initPrometheusMetrics()

			logrus.Infof("Server starting on http://localhost%s", opts.addr)
			logrus.Infof("WebSocket endpoint: ws://localhost%s/ws", opts.addr)
			logrus.Infof("Metrics endpoint: http://localhost%s/metrics", opts.addr)
			logrus.Infof("Shutdown endpoint: http://localhost%s/quitquitquit", opts.addr)
			return http.ListenAndServe(opts.addr, newServeMux(opts))
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "Listen address")
	cmd.Flags().DurationVar(&opts.tickInterval, "tick", 500*time.Millisecond, "Wall-clock time between UI updates")
	cmd.Flags().IntVar(&opts.periodsPerTick, "periods-per-tick", 1, "Recording periods simulated per UI update")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log verbosity level")

	if err := cmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
