package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "status"})

	PuzzlesDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "puzzles_delivered_total",
		Help: "Доставленные задачи по источнику",
	}, []string{"cause"})

	DeliveryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_failures_total",
		Help: "Сбои доставки по этапу конвейера",
	}, []string{"stage"})

	RenderSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_seconds",
		Help:    "Время отрисовки доски",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_commands_total",
		Help: "Полученные команды",
	}, []string{"command"})

	BroadcastRecipients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broadcast_recipients",
		Help: "Чаты в последней ежедневной рассылке",
	})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		BotSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
		PuzzlesDelivered,
		DeliveryFailures,
		RenderSeconds,
		CommandsTotal,
		BroadcastRecipients,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(time.Since(start).Seconds())
	NetworkRequestTotal.WithLabelValues(component, operation, status).Inc()
}

// IncDelivered увеличивает счётчик доставленных задач.
func IncDelivered(cause string) {
	PuzzlesDelivered.WithLabelValues(cause).Inc()
}

// IncDeliveryFailure увеличивает счётчик сбоев на этапе stage.
func IncDeliveryFailure(stage string) {
	DeliveryFailures.WithLabelValues(stage).Inc()
}

// IncCommand учитывает полученную команду.
func IncCommand(command string) {
	if command == "" {
		command = "unknown"
	}
	CommandsTotal.WithLabelValues(command).Inc()
}
