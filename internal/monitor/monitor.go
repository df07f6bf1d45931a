package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/railtycoon/server/internal/model"
	"gorm.io/gorm"
)

// StatusFileName is the file rewritten on every sample.
const StatusFileName = "status.txt"

// Sample is a point-in-time view of the tick loop.
type Sample struct {
	Tick             uint64        `json:"tick"`
	GameTime         time.Time     `json:"gameTime"`
	LastTickDuration time.Duration `json:"lastTickDuration"`
	CommandBacklog   int           `json:"commandBacklog"`
	Owners           int           `json:"owners"`
	Terminals        int           `json:"terminals"`
	Lines            int           `json:"lines"`
	Units            int           `json:"units"`
}

// Source provides samples; it must be safe to call from the monitor goroutine.
type Source interface {
	Sample() Sample
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	DB       *gorm.DB // optional
	Logger   *slog.Logger
	Source   Source
	Dir      string
	Interval time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status renders the current sample as status file lines and the matching
// performance row.
func (s *Service) Status() (output []string, perf model.EnginePerformance) {
	sample := s.deps.Source.Sample()

	perf = model.EnginePerformance{
		Time:           time.Now(),
		Tick:           sample.Tick,
		GameTime:       sample.GameTime,
		TickDurationMs: float64(sample.LastTickDuration.Microseconds()) / 1000,
		CommandBacklog: sample.CommandBacklog,
		Owners:         sample.Owners,
		Terminals:      sample.Terminals,
		Lines:          sample.Lines,
		Units:          sample.Units,
	}

	raw, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output,
		fmt.Sprintf("tick %d at %s", sample.Tick, sample.GameTime.UTC().Format(time.RFC3339)),
		string(raw),
	)
	return output, perf
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	statusFile, err := os.Create(filepath.Join(s.deps.Dir, StatusFileName))
	if err != nil {
		return fmt.Errorf("creating status file: %w", err)
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(statusFile)
	return nil
}

func (s *Service) run(statusFile *os.File) {
	defer close(s.done)
	defer statusFile.Close()

	logger := s.deps.Logger
	logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			lines, perf := s.Status()

			statusFile.Truncate(0)
			statusFile.Seek(0, 0)
			for _, line := range lines {
				statusFile.WriteString(line + "\n")
			}

			if s.deps.DB != nil {
				if err := s.deps.DB.Create(&perf).Error; err != nil {
					logger.Error("Error writing engine performance", "error", err)
				}
			}
		}
	}
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
