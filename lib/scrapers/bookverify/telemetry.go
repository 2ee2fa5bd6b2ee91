package bookverify

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("scrapers/bookverify")
