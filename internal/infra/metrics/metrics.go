package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	DeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveries_total",
		Help: "Успешные выдачи видео по типу тайтла",
	}, []string{"kind"})
	GateDenials = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_denials_total",
		Help: "Запросы, отклонённые проверкой подписки",
	})
	GateCheckErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_check_errors_total",
		Help: "Ошибки запроса статуса участника канала",
	})
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})
	PersistErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "persist_errors_total",
		Help: "Ошибки записи коллекций в хранилище",
	}, []string{"collection"})
	WorkflowSteps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_steps_total",
		Help: "Шаги сценариев администратора",
	}, []string{"flow", "outcome"})
	BroadcastSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_sends_total",
		Help: "Отправки рассылки по статусу",
	}, []string{"status"})
	BroadcastDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "broadcast_duration_seconds",
		Help:    "Длительность рассылки",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 25, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		DeliveriesTotal,
		GateDenials,
		GateCheckErrors,
		BotSendErrors,
		PersistErrors,
		WorkflowSteps,
		BroadcastSends,
		BroadcastDuration,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncDelivery учитывает успешную выдачу видео.
func IncDelivery(paginated bool) {
	kind := "simple"
	if paginated {
		kind = "paginated"
	}
	DeliveriesTotal.WithLabelValues(kind).Inc()
}

// IncWorkflowStep учитывает результат шага сценария.
func IncWorkflowStep(flow, outcome string) {
	if flow == "" {
		flow = "unknown"
	}
	WorkflowSteps.WithLabelValues(flow, outcome).Inc()
}

// IncBroadcast учитывает одну отправку рассылки.
func IncBroadcast(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	BroadcastSends.WithLabelValues(status).Inc()
}
