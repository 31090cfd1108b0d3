package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"heartform/ml"
)

// MetricsCollector 指标收集器，使用独立的 registry，便于测试
type MetricsCollector struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	failures    prometheus.Counter
	defaulted   *prometheus.CounterVec
	latency     prometheus.Histogram
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()
	mc := &MetricsCollector{
		registry: registry,
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartform_predictions_total",
			Help: "Predictions served, by label.",
		}, []string{"label"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heartform_prediction_failures_total",
			Help: "Prediction requests that failed in the classifier.",
		}),
		defaulted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartform_defaulted_categories_total",
			Help: "Categorical inputs that fell outside their domain during encoding.",
		}, []string{"group"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "heartform_prediction_duration_seconds",
			Help:    "Time spent in the classifier.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	registry.MustRegister(
		mc.predictions,
		mc.failures,
		mc.defaulted,
		mc.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return mc
}

// RecordEncoding 记录编码中被静默丢弃的分类
func (mc *MetricsCollector) RecordEncoding(enc ml.Encoding) {
	if mc == nil {
		return
	}
	for _, group := range enc.Defaulted {
		mc.defaulted.WithLabelValues(string(group)).Inc()
	}
}

// RecordPrediction 记录一次预测结果
func (mc *MetricsCollector) RecordPrediction(label int, duration time.Duration, err error) {
	if mc == nil {
		return
	}
	mc.latency.Observe(duration.Seconds())
	if err != nil {
		mc.failures.Inc()
		return
	}
	mc.predictions.WithLabelValues(strconv.Itoa(label)).Inc()
}

// Handler 返回 /metrics 处理器
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}
