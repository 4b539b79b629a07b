package practice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_sessions_started_total",
		Help: "Practice sessions started or resumed.",
	}, []string{"jurisdiction", "resumed"})

	answersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_answers_submitted_total",
		Help: "Answers submitted, by correctness.",
	}, []string{"correct"})

	sessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_sessions_completed_total",
		Help: "Sessions that reached the results screen.",
	}, []string{"passed"})

	explanations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_explanations_total",
		Help: "Tutor explanations stored, by outcome.",
	}, []string{"outcome"})
)
