package jobs

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/macmann/b-board-sub005/internal/config"
)

func TestNewSnapshot_UnknownTZSchedulesInUTC(t *testing.T) {
	cfg := config.Config{TZ: "Not/AZone", SnapshotCron: "0 6 * * MON"}
	s := NewSnapshot(cfg, zerolog.Nop(), nil, nil, nil)

	// Starting the scheduler exercises time.Now().In(loc); a nil location
	// from the failed lookup would panic here.
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()
}

func TestNewSnapshot_ValidTZ(t *testing.T) {
	cfg := config.Config{TZ: "UTC", SnapshotCron: "0 6 * * MON"}
	s := NewSnapshot(cfg, zerolog.Nop(), nil, nil, nil)
	s.Start()
	s.Stop()
}
