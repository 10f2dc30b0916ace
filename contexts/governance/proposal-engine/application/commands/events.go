package commands

import (
	"context"
	"encoding/json"
	"time"

	"agora/contexts/governance/proposal-engine/ports"
)

const (
	eventOrganizationCreated = "organization.created"
	eventProposalCreated     = "proposal.created"
	eventProposalVoted       = "proposal.voted"
	eventProposalExecuted    = "proposal.executed"
	eventFundsReceived       = "treasury.funds_received"
	eventFundsWithdrawn      = "treasury.funds_withdrawn"

	moduleName = "governance/proposal-engine"
)

func newGovernanceEnvelope(
	eventID string,
	eventType string,
	organizationID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Every governance event is partitioned by organization so consumers see
	// one organization's transitions in the order they were applied.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "proposal-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "organization_id",
		PartitionKey:     organizationID,
		Data:             payload,
	}, nil
}

func appendEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	ids ports.IDGenerator,
	eventType string,
	organizationID string,
	occurredAt time.Time,
	data map[string]any,
) error {
	eventID, err := ids.NewID(ctx)
	if err != nil {
		return err
	}
	data["organization_id"] = organizationID
	data["occurred_at"] = occurredAt.UTC().Format(time.RFC3339)
	envelope, err := newGovernanceEnvelope(eventID, eventType, organizationID, occurredAt, data)
	if err != nil {
		return err
	}
	return outbox.AppendOutbox(ctx, envelope)
}
