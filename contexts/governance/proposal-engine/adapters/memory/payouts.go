package memory

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"agora/contexts/governance/proposal-engine/domain/entities"
)

var ErrRecipientRejected = errors.New("recipient rejected transfer")

type Payout struct {
	OrganizationID string
	Recipient      string
	Amount         *big.Int
}

// PayoutGateway records outgoing transfers. Hook runs before a transfer is
// accepted and may call back into the engine.
type PayoutGateway struct {
	mu       sync.Mutex
	rejected map[string]struct{}
	sent     []Payout
	Hook     func(ctx context.Context, organizationID string, recipient string, amount *big.Int) error
}

func NewPayoutGateway() *PayoutGateway {
	return &PayoutGateway{rejected: make(map[string]struct{})}
}

// RejectRecipient makes every later transfer to recipient fail.
func (g *PayoutGateway) RejectRecipient(recipient string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rejected[entities.NormalizeIdentity(recipient)] = struct{}{}
}

func (g *PayoutGateway) Send(ctx context.Context, organizationID string, recipient string, amount *big.Int) error {
	recipient = entities.NormalizeIdentity(recipient)
	if g.Hook != nil {
		if err := g.Hook(ctx, organizationID, recipient, amount); err != nil {
			return err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, rejected := g.rejected[recipient]; rejected {
		return ErrRecipientRejected
	}
	g.sent = append(g.sent, Payout{
		OrganizationID: strings.TrimSpace(organizationID),
		Recipient:      recipient,
		Amount:         entities.CopyAmount(amount),
	})
	return nil
}

func (g *PayoutGateway) Sent() []Payout {
	g.mu.Lock()
	defer g.mu.Unlock()
	items := make([]Payout, len(g.sent))
	copy(items, g.sent)
	return items
}

// Received sums every accepted transfer to recipient.
func (g *PayoutGateway) Received(recipient string) *big.Int {
	g.mu.Lock()
	defer g.mu.Unlock()
	recipient = entities.NormalizeIdentity(recipient)
	total := new(big.Int)
	for _, payout := range g.sent {
		if payout.Recipient == recipient {
			total.Add(total, payout.Amount)
		}
	}
	return total
}
