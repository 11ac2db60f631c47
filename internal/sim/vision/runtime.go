package vision

import (
	"context"
	"time"

	"gridsight.dev/internal/protocol"
)

// queryRequest carries a pair query onto the engine goroutine.
type queryRequest struct {
	msg   protocol.QueryMsg
	reply chan protocol.ResultMsg
}

// overrideRequest carries an OVERRIDE op onto the engine goroutine.
type overrideRequest struct {
	msg   protocol.OverrideMsg
	reply chan overrideResult
}

type overrideResult struct {
	overrides []Override
	err       error
}

// SubmitEvent queues a world-change event. Returns false if the queue is
// full; the host should resend or fall back to a full scene load.
func (e *Engine) SubmitEvent(ev protocol.EventMsg) bool {
	select {
	case e.events <- ev:
		return true
	default:
		return false
	}
}

// SubmitScene queues a full scene replacement.
func (e *Engine) SubmitScene(doc protocol.SceneMsg) bool {
	select {
	case e.scenes <- doc:
		return true
	default:
		return false
	}
}

// Query runs a pair query on the engine goroutine and waits for the answer.
func (e *Engine) Query(ctx context.Context, msg protocol.QueryMsg) (protocol.ResultMsg, error) {
	req := queryRequest{msg: msg, reply: make(chan protocol.ResultMsg, 1)}
	select {
	case e.queries <- req:
	case <-ctx.Done():
		return protocol.ResultMsg{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return protocol.ResultMsg{}, ctx.Err()
	}
}

// Override runs one OVERRIDE op on the engine goroutine.
func (e *Engine) Override(ctx context.Context, msg protocol.OverrideMsg) ([]Override, error) {
	req := overrideRequest{msg: msg, reply: make(chan overrideResult, 1)}
	select {
	case e.ovrReqs <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.overrides, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// States is the outbound stream of changed pair states, one message per
// processed batch.
func (e *Engine) States() <-chan protocol.StatesMsg {
	return e.statesOut
}

// Run is the engine goroutine: it serializes scene loads, events, queries
// and override ops, and drains the dirty set once the debounce window has
// elapsed. It blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Second / time.Duration(e.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case doc := <-e.scenes:
			e.LoadScene(doc)

		case ev := <-e.events:
			if err := e.HandleEvent(ev); err != nil {
				e.debugf("event %s: %v", ev.Kind, err)
			}
			// Drain whatever else arrived in the same burst so one
			// debounce window covers it all.
			for drained := false; !drained; {
				select {
				case next := <-e.events:
					if err := e.HandleEvent(next); err != nil {
						e.debugf("event %s: %v", next.Kind, err)
					}
				default:
					drained = true
				}
			}

		case req := <-e.queries:
			req.reply <- e.answerQuery(req.msg)

		case req := <-e.ovrReqs:
			ovr, err := e.HandleOverride(req.msg)
			req.reply <- overrideResult{overrides: ovr, err: err}

		case <-ticker.C:
			e.tick++
			if len(e.dirty) == 0 {
				continue
			}
			if e.debounceLeft > 0 {
				e.debounceLeft--
				continue
			}
			e.processDirty("debounce")
		}
	}
}

func (e *Engine) answerQuery(msg protocol.QueryMsg) protocol.ResultMsg {
	var st State
	if msg.WithOverrides {
		st = e.CalculateVisibilityWithOverrides(msg.ObserverID, msg.TargetID)
	} else {
		st = e.CalculateVisibility(msg.ObserverID, msg.TargetID)
	}
	return protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              msg.ID,
		ObserverID:      msg.ObserverID,
		TargetID:        msg.TargetID,
		State:           st.String(),
	}
}
