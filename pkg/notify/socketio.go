package notify

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketIO emits events to a socket.io server. Event name is the topic.
type SocketIO struct {
	io     *socket.Socket
	logger logrus.FieldLogger
}

// DialSocketIO connects to the socket.io server at rawURL (path of the URL is the socket.io path).
//
// It waits for the connection until ctx is done or timeout passes.
func DialSocketIO(ctx context.Context, rawURL string, namespace string, timeout time.Duration, logger logrus.FieldLogger) (*SocketIO, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("socket.io url: %w", err)
	}

	opts := socket.DefaultOptions()
	if u.Path != "" {
		opts.SetPath(u.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", u.Scheme, u.Host), opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) != 0 {
			if err, ok := errs[0].(error); ok {
				connected <- err
				return
			}
		}
		connected <- fmt.Errorf("socket.io connection error: %v", errs)
	})
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, ctx.Err()
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	logger.WithField("sid", io.Id()).Info("socket.io connected")
	return &SocketIO{io: io, logger: logger}, nil
}

func (s *SocketIO) Send(principal string, topic string, message any) {
	if !s.io.Connected() {
		s.logger.WithField("topic", topic).Warn("socket.io is disconnected. event is dropped")
		return
	}
	if err := s.io.Emit(topic, Envelope{
		Principal: principal, Topic: topic, Message: message, SentAt: time.Now(),
	}); err != nil {
		s.logger.WithError(err).WithField("topic", topic).Warn("failed to emit event")
	}
}

func (s *SocketIO) Close() {
	s.io.Disconnect()
}
