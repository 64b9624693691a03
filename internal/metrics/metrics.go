package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Checkouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_checkouts_total",
		Help: "Checkout attempts by result.",
	}, []string{"result"})

	StockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_stock_conflicts_total",
		Help: "Checkouts or transitions rejected for insufficient stock.",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_status_transitions_total",
		Help: "Order status transitions by from/to/result.",
	}, []string{"from", "to", "result"})

	DirectSales = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_direct_sales_total",
		Help: "In-person sales by result.",
	}, []string{"result"})
)
