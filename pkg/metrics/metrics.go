package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authservice", Name: "logins_total", Help: "Number of login attempts by mode and result."},
		[]string{"mode", "result"},
	)
	TokenValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authservice", Name: "token_validations_total", Help: "Number of token validations by result."},
		[]string{"result"},
	)
	SessionsRevoked = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authservice", Name: "sessions_revoked_total", Help: "Number of revoked sessions by scope (one, user, bulk)."},
		[]string{"scope"},
	)
	RefreshExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authservice", Name: "refresh_exchanges_total", Help: "Number of refresh token exchanges by result."},
		[]string{"result"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authservice", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authservice", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(TokenValidations)
	reg.MustRegister(SessionsRevoked)
	reg.MustRegister(RefreshExchanges)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
