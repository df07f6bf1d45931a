package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/railtycoon/server/internal/config"
	"github.com/railtycoon/server/pkg/core"
	"github.com/rs/zerolog"
)

// Buckets written by the server.
const (
	BucketSimulation = "simulation"
	BucketEconomy    = "economy"
)

// DefaultBucketNames are the buckets created on connect.
var DefaultBucketNames = []string{BucketSimulation, BucketEconomy}

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx reporting disabled")

// Manager handles InfluxDB connections and writes. When the server cannot be
// reached, points are appended as line protocol to a gzip backup file.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
		cfg:         cfg,
	}
}

// Connect establishes a connection to InfluxDB, falling back to the backup
// file when the server does not answer.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000).
			SetHTTPRequestTimeout(5),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Warn().Err(err).Str("backupPath", m.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.createWriters()
	m.IsValid = true
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgs := m.Client.OrganizationsAPI()

	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %s: %w", m.cfg.Org, err)
		}
	}

	// 90 day retention
	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90,
		})
		if err != nil {
			return fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (m *Manager) createWriters() {
	for _, bucket := range m.BucketNames {
		w := m.Client.WriteAPI(m.cfg.Org, bucket)
		m.Writers[bucket] = w

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}
	m.Logger.Debug().Strs("buckets", m.BucketNames).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// RecordTick writes the tick point and, after a month rollover, one
// settlement point per owner.
func (m *Manager) RecordTick(p core.TickPayload, took time.Duration) {
	if err := m.WritePoint(BucketSimulation, TickPoint(p, took)); err != nil {
		m.Logger.Error().Err(err).Uint64("tick", p.Tick).Msg("Failed to record tick")
	}
	for _, s := range p.Settlement {
		if err := m.WritePoint(BucketEconomy, SettlementPoint(p.GameTime, s)); err != nil {
			m.Logger.Error().Err(err).Str("owner", s.OwnerID).Msg("Failed to record settlement")
		}
	}
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	var err error
	if m.BackupWriter != nil {
		err = errors.Join(m.BackupWriter.Close(), m.backupFile.Close())
		m.BackupWriter = nil
	}
	return err
}

// TickPoint builds the "tick" measurement.
func TickPoint(p core.TickPayload, took time.Duration) *influxdb2_write.Point {
	return influxdb2_write.NewPoint("tick",
		nil,
		map[string]interface{}{
			"tick":          int64(p.Tick),
			"game_time":     p.GameTime.Unix(),
			"time_scale":    p.Stats.TimeScale,
			"terminals":     p.Stats.Terminals,
			"lines":         p.Stats.Lines,
			"units":         p.Stats.Units,
			"arrivals":      p.Stats.Arrivals,
			"revenue":       p.Stats.Revenue,
			"tick_duration": float64(took.Microseconds()) / 1000,
		},
		time.Now(),
	)
}

// SettlementPoint builds the "settlement" measurement of one owner.
func SettlementPoint(gameTime time.Time, s core.SettlementRecord) *influxdb2_write.Point {
	return influxdb2_write.NewPoint("settlement",
		map[string]string{"owner": s.OwnerID},
		map[string]interface{}{
			"line_maintenance": s.LineMaintenance,
			"unit_maintenance": s.UnitMaintenance,
			"loan_payments":    s.LoanPayments,
			"total":            s.Total,
		},
		gameTime,
	)
}
