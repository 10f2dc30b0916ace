package metrics

import (
	"math/big"
	"strconv"

	"agora/contexts/governance/proposal-engine/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exports governance activity as Prometheus counters.
type Recorder struct {
	proposalsCreated  *prometheus.CounterVec
	votesCast         *prometheus.CounterVec
	proposalsExecuted *prometheus.CounterVec
	treasuryMoved     *prometheus.CounterVec
}

// NewRecorder registers the governance collectors on registerer.
func NewRecorder(registerer prometheus.Registerer) (*Recorder, error) {
	recorder := &Recorder{
		proposalsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agora",
			Subsystem: "governance",
			Name:      "proposals_created_total",
			Help:      "Proposals created, by kind.",
		}, []string{"kind"}),
		votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agora",
			Subsystem: "governance",
			Name:      "votes_cast_total",
			Help:      "Ballots accepted, by side.",
		}, []string{"in_favor"}),
		proposalsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agora",
			Subsystem: "governance",
			Name:      "proposals_executed_total",
			Help:      "Proposals executed, by kind and outcome.",
		}, []string{"kind", "passed"}),
		treasuryMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agora",
			Subsystem: "treasury",
			Name:      "movement_total",
			Help:      "Treasury value moved, by direction. Large amounts lose precision.",
		}, []string{"direction"}),
	}
	for _, collector := range []prometheus.Collector{
		recorder.proposalsCreated,
		recorder.votesCast,
		recorder.proposalsExecuted,
		recorder.treasuryMoved,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return recorder, nil
}

func (r *Recorder) ProposalCreated(kind entities.ProposalKind) {
	r.proposalsCreated.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) VoteCast(inFavor bool) {
	r.votesCast.WithLabelValues(strconv.FormatBool(inFavor)).Inc()
}

func (r *Recorder) ProposalExecuted(kind entities.ProposalKind, passed bool) {
	r.proposalsExecuted.WithLabelValues(string(kind), strconv.FormatBool(passed)).Inc()
}

func (r *Recorder) TreasuryMovement(direction string, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	r.treasuryMoved.WithLabelValues(direction).Add(value)
}
