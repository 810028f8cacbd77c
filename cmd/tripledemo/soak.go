package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/valyala/fastrand"
	"golang.org/x/sync/errgroup"

	"github.com/aradilov/triplebuffer"
)

// checkFactor ties each sequence number to a second word so a torn write
// is detectable.
const checkFactor = 0x9E3779B97F4A7C15

type config struct {
	policy   triplebuffer.Policy
	writers  int
	readers  int
	jitter   time.Duration
	interval time.Duration
}

func (c config) validate() error {
	if c.writers < 1 || c.readers < 1 {
		return fmt.Errorf("need at least one writer and one reader, got %d/%d", c.writers, c.readers)
	}
	if c.policy == triplebuffer.SingleReaderWriter && (c.writers != 1 || c.readers != 1) {
		return fmt.Errorf("policy %s takes exactly one writer and one reader", c.policy)
	}
	return nil
}

// sample holds one element per writer; writers sharing the write slot each
// touch only their own element.
type sample struct {
	seq   []uint64
	check []uint64
}

func run(ctx context.Context, cfg config, logger *slog.Logger) (triplebuffer.Stats, error) {
	buf := triplebuffer.NewIndexed(func(int) sample {
		return sample{
			seq:   make([]uint64, cfg.writers),
			check: make([]uint64, cfg.writers),
		}
	}, triplebuffer.WithPolicy(cfg.policy), triplebuffer.WithStats())

	g, ctx := errgroup.WithContext(ctx)

	for w := 0; w < cfg.writers; w++ {
		g.Go(func() error {
			for n := uint64(1); ctx.Err() == nil; n++ {
				buf.Update(func(s *sample) {
					s.seq[w] = n
					s.check[w] = n * checkFactor
				})
				pause(cfg.jitter)
			}
			return nil
		})
	}

	for r := 0; r < cfg.readers; r++ {
		g.Go(func() error {
			return consume(ctx, buf, r, cfg)
		})
	}

	if cfg.interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					st := buf.Stats()
					logger.Debug("progress", "published", st.Published, "fresh_reads", st.FreshReads)
				}
			}
		})
	}

	err := g.Wait()
	return buf.Stats(), err
}

func consume(ctx context.Context, buf *triplebuffer.Buffer[sample], reader int, cfg config) error {
	var last uint64
	for ctx.Err() == nil {
		if buf.IsStale() {
			if cfg.jitter > 0 {
				pause(cfg.jitter)
			} else {
				runtime.Gosched()
			}
			continue
		}

		var err error
		buf.View(func(s *sample) {
			for w := range s.seq {
				if s.check[w] != s.seq[w]*checkFactor {
					err = fmt.Errorf("reader %d: torn value from writer %d: seq=%d", reader, w, s.seq[w])
					return
				}
			}
			// with several writers an element may legitimately lag behind
			// in the slot another writer published; order is only defined
			// for a single producer
			if cfg.writers == 1 {
				if s.seq[0] < last {
					err = fmt.Errorf("reader %d: went backwards: %d after %d", reader, s.seq[0], last)
					return
				}
				last = s.seq[0]
			}
		})
		if err != nil {
			return err
		}
		pause(cfg.jitter)
	}
	return nil
}

// pause sleeps for a random duration in [0, limit].
func pause(limit time.Duration) {
	if limit <= 0 {
		return
	}
	time.Sleep(time.Duration(fastrand.Uint32n(jitterMicros(limit)+1)) * time.Microsecond)
}

// jitterMicros converts limit to whole microseconds, clamped so that the +1
// in pause cannot wrap.
func jitterMicros(limit time.Duration) uint32 {
	us := limit / time.Microsecond
	if us >= math.MaxUint32 {
		return math.MaxUint32 - 1
	}
	return uint32(us)
}
