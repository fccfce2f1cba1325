// Package di provides the dependency injection container that owns the service lifecycle.
package di

import (
	"context"
	"sync"

	"lessonapp/internal/config"
	"lessonapp/internal/observability"
	"lessonapp/internal/services"
	contextutils "lessonapp/internal/utils"

	"go.opentelemetry.io/otel/metric"
)

// Service names registered in the container
const (
	ServiceLessonPlan = "lesson_plan"
	ServiceMetrics    = "generation_metrics"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetLessonPlanService() (services.LessonPlanServiceInterface, error)
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	OnShutdown(fn func(context.Context) error)
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	meterProvider metric.MeterProvider
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container. mp may be nil, in which
// case the global meter provider is used.
func NewServiceContainer(cfg *config.Config, logger *observability.Logger, mp metric.MeterProvider) *ServiceContainer {
	return &ServiceContainer{
		cfg:           cfg,
		logger:        logger,
		meterProvider: mp,
		services:      make(map[string]interface{}),
	}
}

// Initialize builds the pipeline. A missing or malformed AI credential does not fail
// initialization; the service reports it on every generation instead.
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	metrics := observability.NewGenerationMetrics(sc.meterProvider)
	sc.services[ServiceMetrics] = metrics

	lessonPlanService, err := services.NewLessonPlanServiceFromConfig(ctx, sc.cfg, metrics, sc.logger)
	if err != nil {
		return contextutils.WrapError(err, "failed to initialize lesson plan service")
	}
	sc.services[ServiceLessonPlan] = lessonPlanService

	sc.logger.Info(ctx, "Services initialized", map[string]interface{}{
		"provider":   sc.cfg.AI.Provider,
		"models":     lessonPlanService.Candidates(),
		"configured": lessonPlanService.ConfigurationError() == nil,
	})
	return nil
}

// GetService retrieves a service by name
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetLessonPlanService returns the lesson plan pipeline
func (sc *ServiceContainer) GetLessonPlanService() (services.LessonPlanServiceInterface, error) {
	return GetServiceAs[services.LessonPlanServiceInterface](sc, ServiceLessonPlan)
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// OnShutdown registers fn to run on Shutdown. Functions run in reverse registration order.
func (sc *ServiceContainer) OnShutdown(fn func(context.Context) error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.shutdownFuncs = append(sc.shutdownFuncs, fn)
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var errs []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err, map[string]interface{}{"step": i})
			errs = append(errs, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errs) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errs)
	}
	return nil
}
