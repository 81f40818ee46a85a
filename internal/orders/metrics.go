package orders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	paymentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_total",
			Help: "Payment stub calls by outcome",
		},
		[]string{"outcome"},
	)
)

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(KindOf(err))
}
