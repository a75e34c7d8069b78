package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans emitted by this module.
const TracerName = "github.com/gyaneshwarpardhi/navtree"

// Tracer returns the tracer from the global provider. It is a no-op until
// the server installs an exporter.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
