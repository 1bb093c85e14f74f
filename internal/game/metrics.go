package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "make24_rooms_created_total",
		Help: "Rooms created",
	})

	gamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "make24_games_started_total",
		Help: "Games moved from waiting to playing",
	})

	gamesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "make24_games_finished_total",
		Help: "Games that reached the final round",
	})

	// submissionsTotal counts submissions by outcome: solved, attempted, stale.
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "make24_submissions_total",
		Help: "Expression submissions by outcome",
	}, []string{"outcome"})

	solutionsRevealed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "make24_solutions_revealed_total",
		Help: "Rounds ended by a solution reveal",
	})

	roundsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "make24_rounds_expired_total",
		Help: "Rounds ended by the countdown reaching zero",
	})

	roomsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "make24_rooms_discarded_total",
		Help: "Rooms deleted after their last player left",
	})

	timerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "make24_timer_failures_total",
		Help: "Countdowns stopped because the store failed during a timed transition",
	})

	solverDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "make24_solver_duration_seconds",
		Help:    "Time spent searching for a solution on reveal",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14),
	})
)
