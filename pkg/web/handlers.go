package web

import (
	"bytes"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-floor/pkg/hub"
	"github.com/teslashibe/go-floor/pkg/protocol"
)

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"clients": s.statusHub.ClientCount(),
	})
}

// handleStatus returns the last controller snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctl.Last())
}

// handleGraph returns the transition table as edges
func (s *Server) handleGraph(c *fiber.Ctx) error {
	m := s.ctl.Machine()
	return c.JSON(fiber.Map{
		"name":    m.Name(),
		"initial": m.Initial(),
		"states":  m.States(),
		"edges":   m.Edges(),
	})
}

// handleGraphDOT returns the transition table in Graphviz format
func (s *Server) handleGraphDOT(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := s.ctl.Machine().WriteDOT(&buf); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Set(fiber.HeaderContentType, "text/vnd.graphviz; charset=utf-8")
	return c.Send(buf.Bytes())
}

// handleTransitions returns recent state changes
func (s *Server) handleTransitions(c *fiber.Ctx) error {
	s.transitionsMu.RLock()
	defer s.transitionsMu.RUnlock()
	return c.JSON(s.transitions)
}

// handleQueue queues an action, like the operator's key press
func (s *Server) handleQueue(c *fiber.Ctx) error {
	s.ctl.QueueAction()
	s.logger.Info("action queued", "via", "http")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": true})
}

// handleEnd ends the running action
func (s *Server) handleEnd(c *fiber.Ctx) error {
	s.ctl.EndAction()
	s.logger.Info("action end requested", "via", "http")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ended": true})
}

// handleStatusWS streams snapshots and accepts queue/end commands
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)

	// Send the current state so new clients don't wait for a tick
	if msg, err := protocol.NewSnapshotMessage(snapshotData(s.ctl.Last())); err == nil {
		if data, err := msg.Bytes(); err == nil {
			client.Send(hub.NewJSONMessage(data))
		}
	}

	client.Run()
}

// handleInbound dispatches a client frame
func (s *Server) handleInbound(c *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Warn("bad dashboard message", "client", c.ID(), "error", err)
		return
	}

	var reply *protocol.Message
	switch {
	case msg.IsCommand():
		s.command(msg.Type, c.ID())
		reply, err = protocol.NewAckMessage(msg.Type, nil)
	case msg.Type == protocol.TypePing:
		ping, perr := msg.GetPingData()
		if perr != nil {
			return
		}
		reply, err = protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
	default:
		s.logger.Debug("ignoring dashboard message", "type", msg.Type)
		return
	}
	if err != nil {
		return
	}

	out, err := reply.Bytes()
	if err != nil {
		return
	}
	c.Send(hub.NewJSONMessage(out))
}

// command applies a queue or end request from a dashboard client.
func (s *Server) command(t protocol.MessageType, client string) {
	switch t {
	case protocol.TypeQueue:
		s.ctl.QueueAction()
		s.logger.Info("action queued", "via", "ws", "client", client)
	case protocol.TypeEnd:
		s.ctl.EndAction()
		s.logger.Info("action end requested", "via", "ws", "client", client)
	}
}
