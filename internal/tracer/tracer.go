// Package tracer configures the global OpenTracing tracer, adapted from
// the teacher's internal/tracer/tracer.go. The Datadog branch is dropped:
// nothing in this module's go.mod pulls in gopkg.in/DataDog/dd-trace-go.v1,
// and reactor-run only ever needs one tracing backend.
package tracer

import (
	"log"
	"os"
	"reflect"
	"strconv"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jaegermetrics "github.com/uber/jaeger-lib/metrics"
)

// Init configures the Jaeger tracer from JAEGER_* environment variables and
// registers it as the global OpenTracing tracer. It should be called once
// from main. Setting JAEGER_DISABLED=true skips tracing entirely, leaving
// the no-op global tracer in place.
func Init(svcName, version string) error {
	disabled, err := strconv.ParseBool(os.Getenv("JAEGER_DISABLED"))
	if err != nil {
		// Unset or unparsable JAEGER_DISABLED means "not disabled" — the
		// common case of a process that never touches the env var at all.
		disabled = false
	}
	if disabled {
		return nil
	}

	t, err := configureJaeger(svcName, version)
	if err != nil {
		return errors.Wrap(err, "failed to configure Jaeger tracer")
	}
	log.Printf("INFO: using Jaeger tracer")
	opentracing.SetGlobalTracer(t)
	return nil
}

func configureJaeger(svcName, version string) (opentracing.Tracer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, err
	}
	cfg.ServiceName = svcName
	cfg.Tags = append(cfg.Tags, opentracing.Tag{Key: "service.version", Value: version})
	if reflect.DeepEqual(cfg.Sampler, &jaegercfg.SamplerConfig{}) {
		// Default sampler when JAEGER_SAMPLER_* is unset: sample
		// everything, so a reactor-run instance is traceable out of the
		// box without requiring operators to configure a sampler first.
		cfg.Sampler.Type = jaeger.SamplerTypeConst
		cfg.Sampler.Param = 1
	}

	t, _, err := cfg.NewTracer(
		jaegercfg.Logger(&jaegerLogger{}),
		jaegercfg.Metrics(jaegermetrics.NullFactory),
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

type jaegerLogger struct{}

func (l *jaegerLogger) Error(msg string) {
	log.Printf("ERROR: %s", msg)
}

func (l *jaegerLogger) Infof(msg string, args ...interface{}) {
	log.Printf(msg, args...)
}
