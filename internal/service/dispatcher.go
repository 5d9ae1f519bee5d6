package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/brightstage/line-gateway/internal/line"
)

// PushResult is the uniform outcome of a delivery attempt. Transport failures
// become a result, never a panic or an error escaping the dispatcher.
type PushResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MessageAPI is the slice of the platform client the dispatcher needs.
type MessageAPI interface {
	Push(ctx context.Context, to string, messages []line.Message) error
	Multicast(ctx context.Context, to []string, messages []line.Message) error
	Broadcast(ctx context.Context, messages []line.Message) error
}

// Dispatcher delivers composed envelope batches. Delivery is at-most-once per
// call: no retry, no backoff.
type Dispatcher struct {
	api MessageAPI
}

func NewDispatcher(api MessageAPI) *Dispatcher {
	return &Dispatcher{api: api}
}

func (d *Dispatcher) PushToOne(ctx context.Context, lineUID string, messages []line.Message) PushResult {
	if lineUID == "" {
		return PushResult{Success: false, Error: "missing recipient"}
	}
	if len(messages) == 0 {
		return PushResult{Success: false, Error: "no messages to send"}
	}

	capped := CapEnvelopes(messages)
	if err := d.api.Push(ctx, lineUID, capped); err != nil {
		log.Error().Err(err).Str("lineUid", lineUID).Msg("push failed")
		return PushResult{Success: false, Error: err.Error()}
	}

	log.Info().Str("lineUid", lineUID).Int("messages", len(capped)).Msg("push delivered")
	return PushResult{Success: true}
}

func (d *Dispatcher) PushToMany(ctx context.Context, lineUIDs []string, messages []line.Message) PushResult {
	if len(lineUIDs) == 0 {
		return PushResult{Success: false, Error: "missing recipients"}
	}
	if len(messages) == 0 {
		return PushResult{Success: false, Error: "no messages to send"}
	}

	if len(lineUIDs) > line.MaxMulticastRecipients {
		lineUIDs = lineUIDs[:line.MaxMulticastRecipients]
	}

	if err := d.api.Multicast(ctx, lineUIDs, CapEnvelopes(messages)); err != nil {
		log.Error().Err(err).Int("recipients", len(lineUIDs)).Msg("multicast failed")
		return PushResult{Success: false, Error: err.Error()}
	}

	log.Info().Int("recipients", len(lineUIDs)).Msg("multicast delivered")
	return PushResult{Success: true}
}

func (d *Dispatcher) BroadcastToAll(ctx context.Context, messages []line.Message) PushResult {
	if len(messages) == 0 {
		return PushResult{Success: false, Error: "no messages to send"}
	}

	if err := d.api.Broadcast(ctx, CapEnvelopes(messages)); err != nil {
		log.Error().Err(err).Msg("broadcast failed")
		return PushResult{Success: false, Error: err.Error()}
	}

	log.Info().Msg("broadcast delivered")
	return PushResult{Success: true}
}
