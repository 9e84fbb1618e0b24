package rag

import (
	"context"
	"fmt"
	"iter"
	"time"
)

// streamEvents merges two producers, the upstream generation consumer and a
// heartbeat timer, into one ordered outward sequence. A single coordinating
// loop owns the ordering; the upstream consumer runs in its own goroutine and
// hands fragments over an unbuffered channel, so a fragment is either in
// flight to the loop or not yet read from the backend, never both.
//
// Cancellation of the outward consumer (breaking out of the range, or the
// request context ending) cancels the upstream HTTP stream and stops both
// producers; the consumer goroutine exits once its pending send is released.
func (p *Pipeline) streamEvents(ctx context.Context, prompt string, sources []Source) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		genCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		deltas := make(chan string)
		done := make(chan error, 1)

		go func() {
			done <- p.generator.GenerateStream(genCtx, prompt, func(delta string) error {
				select {
				case deltas <- delta:
					return nil
				case <-genCtx.Done():
					return genCtx.Err()
				}
			})
		}()

		timer := time.NewTimer(p.heartbeat)
		defer timer.Stop()

		// emit yields one event and rearms the heartbeat timer, so the
		// interval always measures the gap since the last emitted event
		// of any kind.
		emit := func(ev Event) bool {
			if !yield(ev, nil) {
				return false
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.heartbeat)
			return true
		}

		for {
			select {
			case text := <-deltas:
				if !emit(Delta{Text: text}) {
					return
				}

			case <-timer.C:
				// Prefer an already-ready delta over the heartbeat
				// so keep-alives never overtake generated text.
				select {
				case text := <-deltas:
					if !emit(Delta{Text: text}) {
						return
					}
				default:
					if !emit(Heartbeat{}) {
						return
					}
				}

			case err := <-done:
				if err != nil {
					// A cancellation-induced failure reports as
					// cancellation, whichever branch saw it first.
					if ctxErr := ctx.Err(); ctxErr != nil {
						yield(nil, ctxErr)
						return
					}
					p.logger.Warn("generation stream failed", "error", err)
					yield(nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err))
					return
				}
				yield(Final{Sources: sources}, nil)
				return

			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			}
		}
	}
}
