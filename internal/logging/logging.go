package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath names a per-session log file, e.g. logs/railsim.20250101_120000.log.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}
