package realtime

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// clientCommand is what connected clients send over the socket.
type clientCommand struct {
	Action   string `json:"action"`
	EntityID string `json:"entity_id,omitempty"`
}

// RegisterRoutes wires the websocket endpoint into the Fiber app.
func RegisterRoutes(app fiber.Router, hub *Hub) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		id := hub.Connect(conn)
		defer func() {
			hub.Disconnect(id)
			_ = conn.Close()
		}()

		for {
			var cmd clientCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.WithField("client", id).WithError(err).Debug("websocket read error")
				}
				return
			}

			// Replies go through the hub so they share the per-client write
			// lock with broadcasts.
			switch cmd.Action {
			case "subscribe":
				hub.Subscribe(id, cmd.EntityID)
				hub.Send(id, Message{
					Kind:      "subscription_confirmed",
					Timestamp: time.Now().UTC(),
					Data:      cmd.EntityID,
				})
			case "unsubscribe":
				hub.Unsubscribe(id, cmd.EntityID)
				hub.Send(id, Message{
					Kind:      "unsubscription_confirmed",
					Timestamp: time.Now().UTC(),
					Data:      cmd.EntityID,
				})
			case "ping":
				hub.Send(id, Message{Kind: "pong", Timestamp: time.Now().UTC()})
			default:
				logrus.WithFields(logrus.Fields{
					"client": id,
					"action": cmd.Action,
				}).Debug("unknown websocket action")
			}
		}
	}))
}
