package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Driver 串口链路业务指标
type Driver struct {
	ExchangeTotal     *prometheus.CounterVec // labels: command, result=ok|timeout|framing|io
	RetryTotal        prometheus.Counter
	BytesWritten      prometheus.Counter
	BytesRead         prometheus.Counter
	RateLimitedTotal  prometheus.Counter // 不稳定命令被限速拦截次数
	BlockedWriteTotal prometheus.Counter // 数字信道写入被策略拦截次数
	EchoMismatchTotal prometheus.Counter // 写入回显与下发内容不一致次数
}

// NewDriver 注册并返回链路指标
func NewDriver(reg *prometheus.Registry) *Driver {
	m := &Driver{
		ExchangeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pmr171_exchange_total",
			Help: "Command exchanges by command name and result.",
		}, []string{"command", "result"}),
		RetryTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pmr171_retry_total",
			Help: "Total command attempt retries.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pmr171_serial_bytes_written_total",
			Help: "Total bytes written to the serial port.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pmr171_serial_bytes_read_total",
			Help: "Total bytes read from the serial port.",
		}),
		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pmr171_rate_limited_total",
			Help: "Unstable-class commands rejected by the interval limiter.",
		}),
		BlockedWriteTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pmr171_blocked_write_total",
			Help: "Digital channel writes rejected by safety policy.",
		}),
		EchoMismatchTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pmr171_echo_mismatch_total",
			Help: "Channel writes whose device echo differed from the sent record.",
		}),
	}
	reg.MustRegister(
		m.ExchangeTotal, m.RetryTotal, m.BytesWritten, m.BytesRead,
		m.RateLimitedTotal, m.BlockedWriteTotal, m.EchoMismatchTotal,
	)
	return m
}
