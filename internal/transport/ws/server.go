package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gridsight.dev/internal/protocol"
	"gridsight.dev/internal/sim/catalogs"
	"gridsight.dev/internal/sim/tuning"
	"gridsight.dev/internal/sim/vision"
)

// Server bridges one host (VTT, game server, simulation harness) to the
// engine over a websocket. The host speaks HELLO/SCENE/EVENT/QUERY/OVERRIDE;
// the engine answers WELCOME/RESULT/STATES/ERROR.
type Server struct {
	engine *vision.Engine
	cfg    tuning.Tuning
	cats   *catalogs.Catalogs
	log    *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(engine *vision.Engine, cfg tuning.Tuning, cats *catalogs.Catalogs, logger *log.Logger) *Server {
	return &Server{
		engine: engine,
		cfg:    cfg,
		cats:   cats,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine: session replies plus the engine's states stream.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				case msg := <-s.engine.States():
					b, err := json.Marshal(msg)
					if err != nil {
						continue
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			s.route(ctx, msg, out)
		}
	}
}

func (s *Server) route(ctx context.Context, msg []byte, out chan []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.sendError(out, "", protocol.ErrProtoBadRequest, "malformed JSON")
		return
	}
	if base.ProtocolVersion != "" && base.ProtocolVersion != protocol.Version {
		s.sendError(out, "", protocol.ErrProtoBadRequest, "protocol_version mismatch")
		return
	}

	switch base.Type {
	case protocol.TypeScene:
		var doc protocol.SceneMsg
		if err := json.Unmarshal(msg, &doc); err != nil {
			s.sendError(out, "", protocol.ErrProtoBadRequest, "bad SCENE payload")
			return
		}
		if !s.engine.SubmitScene(doc) {
			s.sendError(out, doc.SceneID, protocol.ErrConflict, "scene queue full")
		}

	case protocol.TypeEvent:
		var ev protocol.EventMsg
		if err := json.Unmarshal(msg, &ev); err != nil {
			s.sendError(out, "", protocol.ErrProtoBadRequest, "bad EVENT payload")
			return
		}
		if !protocol.IsKnownEventKind(ev.Kind) {
			s.sendError(out, "", protocol.ErrUnknownKind, ev.Kind)
			return
		}
		if !s.engine.SubmitEvent(ev) {
			s.sendError(out, "", protocol.ErrConflict, "event queue full")
		}

	case protocol.TypeQuery:
		var q protocol.QueryMsg
		if err := json.Unmarshal(msg, &q); err != nil {
			s.sendError(out, "", protocol.ErrProtoBadRequest, "bad QUERY payload")
			return
		}
		if q.ObserverID == "" || q.TargetID == "" {
			s.sendError(out, q.ID, protocol.ErrBadRequest, "observer_id and target_id required")
			return
		}
		qctx, qcancel := context.WithTimeout(ctx, 5*time.Second)
		res, err := s.engine.Query(qctx, q)
		qcancel()
		if err != nil {
			s.sendError(out, q.ID, protocol.ErrInternal, err.Error())
			return
		}
		s.send(out, res)

	case protocol.TypeOverride:
		var o protocol.OverrideMsg
		if err := json.Unmarshal(msg, &o); err != nil {
			s.sendError(out, "", protocol.ErrProtoBadRequest, "bad OVERRIDE payload")
			return
		}
		octx, ocancel := context.WithTimeout(ctx, 5*time.Second)
		ovr, err := s.engine.Override(octx, o)
		ocancel()
		if err != nil {
			code, detail := splitErrorCode(err)
			s.sendError(out, o.ID, code, detail)
			return
		}
		if o.Op == protocol.OverrideOpGet || o.Op == protocol.OverrideOpSet {
			s.send(out, overrideReply(o.ID, ovr))
		}

	default:
		s.sendError(out, "", protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
	}
}

// OverrideReplyMsg reports stored overrides back to the host.
type OverrideReplyMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	RefID           string            `json:"ref_id,omitempty"`
	Overrides       []vision.Override `json:"overrides"`
}

func overrideReply(refID string, ovr []vision.Override) OverrideReplyMsg {
	if ovr == nil {
		ovr = []vision.Override{}
	}
	return OverrideReplyMsg{
		Type:            protocol.TypeOverride,
		ProtocolVersion: protocol.Version,
		RefID:           refID,
		Overrides:       ovr,
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}

	sessionID = uuid.NewString()
	out = make(chan []byte, 256)

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		EngineParams: protocol.EngineParams{
			TickRateHz:    s.cfg.TickRateHz,
			DebounceTicks: s.cfg.DebounceTicks,
			MaxVisibility: s.cfg.MaxVisibility,
			QuantizeStep:  s.cfg.QuantizeStep,
			Enabled:       s.cfg.Enabled,
			EncounterOnly: s.cfg.EncounterOnly,
		},
		Catalogs: protocol.CatalogDigests{
			SensesDigest:     s.cats.Senses.Digest,
			ConditionsDigest: s.cats.Conditions.Digest,
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", nil
	}
	if s.log != nil {
		s.log.Printf("session %s connected (host=%s scene=%s)", sessionID, hello.HostName, hello.SceneID)
	}
	return sessionID, out
}

func (s *Server) send(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
		if s.log != nil {
			s.log.Printf("session outbox full, dropping %T", v)
		}
	}
}

func (s *Server) sendError(out chan []byte, refID, code, message string) {
	s.send(out, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		RefID:           refID,
		Code:            code,
		Message:         message,
	})
}

// splitErrorCode maps engine errors of the form "E_CODE: detail" onto wire
// codes, defaulting to E_BAD_REQUEST.
func splitErrorCode(err error) (code, detail string) {
	msg := err.Error()
	for i := 0; i < len(msg); i++ {
		if msg[i] == ':' {
			if protocol.IsKnownCode(msg[:i]) && msg[:i] != "" {
				d := msg[i+1:]
				for len(d) > 0 && d[0] == ' ' {
					d = d[1:]
				}
				return msg[:i], d
			}
			break
		}
	}
	return protocol.ErrBadRequest, msg
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
