package webopac

import (
	"go.opentelemetry.io/otel"

	"grazopac-backend/lib/restyutil"
)

var tracer = otel.Tracer("scrapers/webopac")

var debugOutput restyutil.InstrumentOutput

// SetDebugOutput dumps every raw http response to the given output.
// Must be called before NewClient.
func SetDebugOutput(out restyutil.InstrumentOutput) {
	debugOutput = out
}
