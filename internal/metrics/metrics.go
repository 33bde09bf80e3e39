// Package metrics collects and exposes Prometheus metrics for the auth core.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Validation outcomes used as the result label.
const (
	ResultValid        = "valid"
	ResultNotFound     = "not_found"
	ResultBadSignature = "bad_signature"
	ResultInactive     = "inactive"
	ResultExpired      = "expired"
	ResultUserInactive = "user_inactive"
)

// Recorder is what services report to. A nil *Collector is a valid no-op Recorder.
type Recorder interface {
	RecordTokenIssued(tokenType string)
	RecordValidation(result string)
	RecordRevocations(reason string, count int64)
	RecordCleanup(deleted int64)
	RecordLogin(provider string, isNewUser bool)
	RecordLoginFailure(provider string)
}

// Collector implements Recorder on Prometheus counters.
type Collector struct {
	tokensIssued   *prometheus.CounterVec
	validations    *prometheus.CounterVec
	revocations    *prometheus.CounterVec
	cleanupDeleted prometheus.Counter
	logins         *prometheus.CounterVec
	loginFailures  *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_tokens_issued_total",
			Help: "Tokens issued, by token type.",
		}, []string{"type"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_token_validations_total",
			Help: "Token validations, by outcome.",
		}, []string{"result"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_tokens_revoked_total",
			Help: "Tokens deactivated, by reason.",
		}, []string{"reason"}),
		cleanupDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_tokens_cleaned_total",
			Help: "Expired inactive tokens deleted by cleanup.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_logins_total",
			Help: "Successful provider sign-ins.",
		}, []string{"provider", "new_user"}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_login_failures_total",
			Help: "Rejected provider sign-ins.",
		}, []string{"provider"}),
	}

	reg.MustRegister(
		c.tokensIssued,
		c.validations,
		c.revocations,
		c.cleanupDeleted,
		c.logins,
		c.loginFailures,
	)
	return c
}

func (c *Collector) RecordTokenIssued(tokenType string) {
	if c == nil {
		return
	}
	c.tokensIssued.WithLabelValues(tokenType).Inc()
}

func (c *Collector) RecordValidation(result string) {
	if c == nil {
		return
	}
	c.validations.WithLabelValues(result).Inc()
}

func (c *Collector) RecordRevocations(reason string, count int64) {
	if c == nil || count <= 0 {
		return
	}
	c.revocations.WithLabelValues(reason).Add(float64(count))
}

func (c *Collector) RecordCleanup(deleted int64) {
	if c == nil || deleted <= 0 {
		return
	}
	c.cleanupDeleted.Add(float64(deleted))
}

func (c *Collector) RecordLogin(provider string, isNewUser bool) {
	if c == nil {
		return
	}
	c.logins.WithLabelValues(provider, strconv.FormatBool(isNewUser)).Inc()
}

func (c *Collector) RecordLoginFailure(provider string) {
	if c == nil {
		return
	}
	c.loginFailures.WithLabelValues(provider).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
