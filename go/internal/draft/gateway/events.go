package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/go/internal/draft/events"
	"github.com/mcdev12/auctiondraft/go/internal/models"
)

// Messages pushed over the socket are either an events.Envelope or a SnapshotMessage.
// Both carry type and seq so a client can order them on one stream.

// TypeSnapshot tags a full session view. Clients replace their local state with it and
// keep applying events whose seq is greater.
const TypeSnapshot events.Type = "draft:snapshot"

// TypeSync is sent by a client that noticed a seq gap and wants a fresh snapshot.
const TypeSync = "draft:sync"

// SnapshotMessage carries the session view of a league's draft.
type SnapshotMessage struct {
	Type     events.Type              `json:"type"`
	LeagueID uuid.UUID                `json:"league_id"`
	Seq      int64                    `json:"seq"`
	Data     *models.DraftSessionView `json:"data"` // nil when the league has no draft yet
}

// clientMessage is the only shape the gateway reads from clients.
type clientMessage struct {
	Type string `json:"type"`
}

func encodeSnapshot(leagueID uuid.UUID, view *models.DraftSessionView) ([]byte, error) {
	msg := SnapshotMessage{Type: TypeSnapshot, LeagueID: leagueID, Data: view}
	if view != nil {
		msg.Seq = view.Seq
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}
