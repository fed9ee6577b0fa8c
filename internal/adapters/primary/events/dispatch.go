package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jupiterclapton/post-service/internal/core/domain"
	"github.com/jupiterclapton/post-service/internal/core/ports"
)

// HandlerFunc traite un payload brut reçu sur un topic.
type HandlerFunc func(ctx context.Context, payload []byte) error

var ErrMalformedPayload = errors.New("malformed event payload")

// Typed transforme un handler typé en HandlerFunc (décodage JSON puis appel).
func Typed[T any](handle func(context.Context, T) error) HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		var event T
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return handle(ctx, event)
	}
}

// Routes : table topic -> handler, résolue une seule fois au démarrage.
func Routes(sync ports.UserSyncService) map[string]HandlerFunc {
	return map[string]HandlerFunc{
		domain.TopicUserAdded:   Typed(sync.AddUser),
		domain.TopicUserUpdated: Typed(sync.UpdateUser),
	}
}

// Disposition est la décision d'acquittement pour un message traité.
type Disposition int

const (
	Ack Disposition = iota
	Retry
	Redeliver
	Drop
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Retry:
		return "nak_delay"
	case Redeliver:
		return "nak"
	case Drop:
		return "term"
	}
	return "unknown"
}

// Classify décide du sort d'un message selon l'erreur du handler.
//   - succès ou redélivrance d'un user-added déjà appliqué -> Ack
//   - payload illisible ou invalide -> Drop (poison, jamais rejoué)
//   - NotFound (ex: user-updated avant user-added) -> Retry avec délai
//   - le reste -> Redeliver
func Classify(err error) Disposition {
	switch {
	case err == nil, errors.Is(err, domain.ErrUserAlreadyExists):
		return Ack
	case errors.Is(err, ErrMalformedPayload), domain.IsKind(err, domain.KindBadRequest):
		return Drop
	case domain.IsKind(err, domain.KindNotFound):
		return Retry
	default:
		return Redeliver
	}
}

// DefaultRetryDelay espace les rejeux d'un message arrivé trop tôt.
const DefaultRetryDelay = 5 * time.Second
