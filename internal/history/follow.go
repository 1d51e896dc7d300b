package history

import (
	"context"
	"dobble-client/internal/events"
)

// Follow journals a session's events into matchID until the subscription
// closes or ctx is done. Write failures are logged and do not stop it.
func (s *Store) Follow(ctx context.Context, matchID string, sub *events.Subscription) error {
	defer sub.Cancel()

	log := s.log.With().Str("match_id", matchID).Logger()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-sub.C():
			if !ok {
				return nil
			}

			var err error
			switch e.Kind {
			case events.Advisory:
				if e.Rejected != nil {
					err = s.RecordAdvisory(ctx, matchID, e.Rejected.Code)
				}
			case events.GameEnded:
				err = s.FinishMatch(ctx, matchID, e.State)
			case events.SessionError:
				err = s.AbortMatch(ctx, matchID, e.Err)
			}
			if err != nil {
				log.Error().Err(err).Str("event", string(e.Kind)).Msg("failed to journal event")
			}
		}
	}
}
