package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/queue"
)

// notifier wraps an EventPublisher so that a publishing failure never fails
// the request that produced the event.
type notifier struct {
	ep  EventPublisher
	log *zap.Logger
}

func newNotifier(ep EventPublisher, log *zap.Logger) notifier {
	if ep == nil {
		ep = queue.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return notifier{ep: ep, log: log}
}

func (n notifier) emit(ctx context.Context, typ queue.EventType, user *model.User, actor *model.User, detail string) {
	ev := queue.AuthEvent{Type: typ, Detail: detail, OccurredAt: time.Now().UTC()}
	if user != nil {
		ev.UserID = user.ID.String()
		ev.Email = user.Email
	}
	if actor != nil {
		ev.ActorID = actor.ID.String()
	}
	if err := n.ep.Publish(ctx, ev); err != nil {
		n.log.Warn("auth event not published", zap.String("type", string(typ)), zap.Error(err))
	}
}
