package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/apexcrm/campaign-manager/internal/model"
)

// Outcome is the result of one delivery attempt. Status and DeliveryStatus
// are coupled: a sent message is delivered, a failed one is not. The
// simulator never yields PENDING.
type Outcome struct {
	Status         string
	DeliveryStatus string
}

// Sender simulates an unreliable delivery channel: each task succeeds
// independently with the configured probability. A simulated failure is a
// recorded outcome, not an error, and is never retried here.
type Sender struct {
	successRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSender creates a Sender. Pass a seeded rng for deterministic tests;
// nil gets a time-seeded source.
func NewSender(successRate float64, rng *rand.Rand) *Sender {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sender{successRate: successRate, rng: rng}
}

func (s *Sender) Send(task model.DispatchTask) Outcome {
	s.mu.Lock()
	success := s.rng.Float64() < s.successRate
	s.mu.Unlock()

	if success {
		return Outcome{Status: model.StatusSent, DeliveryStatus: model.DeliveryDelivered}
	}
	return Outcome{Status: model.StatusFailed, DeliveryStatus: model.DeliveryFailed}
}
