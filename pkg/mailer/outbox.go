package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type deliver struct {
	msg Message
}

// outboxActor sends one message at a time. Failures are logged; the mailer
// has already retried them.
type outboxActor struct {
	sender  Sender
	timeout time.Duration
	logger  *zap.Logger
}

func (a *outboxActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *deliver:
		sendCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.sender.Send(sendCtx, msg.msg)
		cancel()
		if err != nil {
			a.logger.Error("Outbox delivery failed",
				zap.String("to", msg.msg.To),
				zap.String("subject", msg.msg.Subject),
				zap.Error(err))
			return
		}
		a.logger.Debug("Outbox delivered", zap.String("to", msg.msg.To))

	case *actor.Started:
		a.logger.Info("Mail outbox started")

	case *actor.Stopped:
		a.logger.Info("Mail outbox stopped")
	}
}

// Outbox queues fire-and-forget e-mail on an actor so request handlers
// never wait for SMTP.
type Outbox struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

// NewOutbox spawns the outbox actor. timeout bounds a single Send including
// its retries.
func NewOutbox(sender Sender, timeout time.Duration, logger *zap.Logger) (*Outbox, error) {
	system := actor.NewActorSystem()

	props := actor.PropsFromProducer(func() actor.Actor {
		return &outboxActor{sender: sender, timeout: timeout, logger: logger}
	})
	pid, err := system.Root.SpawnNamed(props, "mail-outbox")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn mail outbox: %w", err)
	}

	return &Outbox{system: system, pid: pid, logger: logger}, nil
}

func (o *Outbox) Enqueue(msg Message) {
	o.system.Root.Send(o.pid, &deliver{msg: msg})
}

// Close stops the actor after the messages already queued are processed.
func (o *Outbox) Close() error {
	return o.system.Root.PoisonFuture(o.pid).Wait()
}
