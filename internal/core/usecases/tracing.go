package usecases

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/samirrijal/campfinder/internal/core/usecases")
