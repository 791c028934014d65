package service

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	loanOps *prometheus.CounterVec
}

// NewMetrics reg 为 nil 时只创建不注册（测试用）
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loanOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "library_loan_operations_total",
			Help: "Borrow / return / delete outcomes",
		}, []string{"op", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.loanOps)
	}
	return m
}

func (m *Metrics) loan(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.loanOps.WithLabelValues(op, result).Inc()
}
