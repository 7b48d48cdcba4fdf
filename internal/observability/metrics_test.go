package observability

import (
	"testing"
	"time"

	"github.com/rs/zerolog/log"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordRequest("finance", "deposit", true, 2*time.Millisecond)
	ConnectionOpened("finance")
	ConnectionClosed("finance")
	RecordPoolTask("finance.connections")
	RecordAdminRequest("finance", "GET", "/health", 200)

	log.Debug().Msg("observability/metrics: registration idempotent and recording paths executed")
}
