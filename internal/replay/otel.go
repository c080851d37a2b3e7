package replay

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/luxreplay/internal/replay"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
