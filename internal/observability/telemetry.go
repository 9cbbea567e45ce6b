package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/annel0/lightcheck/internal/logging"
)

// TracingOptions описывает экспорт спанов проверки
type TracingOptions struct {
	Service     string
	World       string
	Endpoint    string  // host:port OTLP HTTP; пусто: OTEL_EXPORTER_OTLP_ENDPOINT или localhost:4318
	Insecure    bool    // без TLS
	SampleRatio float64 // доля сохраняемых трасс; <= 0 или >= 1: все
}

func (o TracingOptions) sampler() sdktrace.Sampler {
	if o.SampleRatio <= 0 || o.SampleRatio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.SampleRatio))
}

// InitTelemetry регистрирует глобальный TracerProvider с OTLP экспортёром.
// Верификатор создаёт спан на канал каждого чанка, поэтому для больших миров
// стоит задавать SampleRatio. Возвращённую функцию вызывают при завершении.
func InitTelemetry(ctx context.Context, opts TracingOptions) (func(context.Context) error, error) {
	var clientOpts []otlptracehttp.Option
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, otlptracehttp.WithEndpoint(opts.Endpoint))
	}
	if opts.Insecure {
		clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(opts.Service)}
	if opts.World != "" {
		attrs = append(attrs, attribute.String("lightcheck.world", opts.World))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(opts.sampler()),
	)
	otel.SetTracerProvider(tp)
	logging.Info("📡 Трассировка включена: service=%s endpoint=%q sample=%.2f", opts.Service, opts.Endpoint, opts.SampleRatio)

	return tp.Shutdown, nil
}
