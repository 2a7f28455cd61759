package main

import (
	"strconv"

	"github.com/miretskiy/colocsim/simulator"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Prometheus metrics, labelled by 1-based tenant index
	promMetrics = struct {
		hitRate            *prometheus.GaugeVec
		designatedMissRate *prometheus.GaugeVec
		tenantCalls        *prometheus.GaugeVec
		callsProcessed     prometheus.Gauge
		totalCalls         prometheus.Gauge
	}{
		hitRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "colocsim_tenant_hit_rate_percent",
			Help: "Co-located cache hit rate of a tenant over all of its calls so far",
		}, []string{"tenant"}),
		designatedMissRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "colocsim_tenant_designated_miss_rate_percent",
			Help: "Miss rate of a tenant on its dedicated cache (cold misses included)",
		}, []string{"tenant"}),
		tenantCalls: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "colocsim_tenant_calls",
			Help: "Calls generated for a tenant",
		}, []string{"tenant"}),
		callsProcessed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "colocsim_calls_processed",
			Help: "Co-located cache calls replayed so far",
		}),
		totalCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "colocsim_calls_total",
			Help: "Length of the co-located call stream",
		}),
	}
)

func initPrometheusMetrics() {
	prometheus.MustRegister(
		promMetrics.hitRate,
		promMetrics.designatedMissRate,
		promMetrics.tenantCalls,
		promMetrics.callsProcessed,
		promMetrics.totalCalls,
	)
}

func tenantLabel(index int) string {
	return strconv.Itoa(index)
}

func updatePrometheusMetrics(sample *SampleMessage) {
	promMetrics.callsProcessed.Set(float64(sample.Calls))
	promMetrics.totalCalls.Set(float64(sample.TotalCalls))
	for i, rate := range sample.HitRates {
		promMetrics.hitRate.WithLabelValues(tenantLabel(i + 1)).Set(rate)
	}
}

func updateDesignatedMetrics(designated []simulator.DesignatedResult) {
	// A new run may have fewer tenants than the previous one
	promMetrics.hitRate.Reset()
	promMetrics.designatedMissRate.Reset()
	promMetrics.tenantCalls.Reset()
	for _, d := range designated {
		promMetrics.designatedMissRate.WithLabelValues(tenantLabel(d.Tenant)).Set(d.MissRate)
		promMetrics.tenantCalls.WithLabelValues(tenantLabel(d.Tenant)).Set(float64(d.Calls))
	}
}
