package api

import (
	"fmt"
	"time"

	"github.com/erilali/chatrelay/internal/logger"
	"github.com/nats-io/nats.go"
)

func connectNATS(url string, l *logger.Logger) (*nats.Conn, error) {
	l.Infof("Connecting to NATS at %s", url)
	nc, err := nats.Connect(url,
		nats.Name("chatrelay"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Infof("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", url, err)
	}
	l.Info("Successfully connected to NATS")
	return nc, nil
}
