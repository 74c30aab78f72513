package retrain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safeguard/safety-assistant/internal/application"
	"github.com/safeguard/safety-assistant/internal/config"
	"github.com/safeguard/safety-assistant/internal/domain"
)

// everyTick activates shortly after any instant
type everyTick time.Duration

func (e everyTick) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

type never struct{}

func (never) Next(time.Time) time.Time { return time.Time{} }

type countingRetrainer struct {
	mu    sync.Mutex
	runs  int
	err   error
	done  chan struct{}
	limit int
}

func (r *countingRetrainer) Retrain(context.Context) (*application.TrainingReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs++
	if r.runs == r.limit {
		close(r.done)
	}
	report := &application.TrainingReport{Samples: map[domain.ScanKind]int{domain.KindMessage: 3}}
	return report, r.err
}

func TestScheduler_RunsUntilCanceled(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"successful runs", nil},
		{"failing runs keep the loop alive", errors.New("dataset missing")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retrainer := &countingRetrainer{err: tt.err, done: make(chan struct{}), limit: 3}
			scheduler := NewScheduler(everyTick(time.Millisecond), retrainer, zap.NewNop())

			ctx, cancel := context.WithCancel(context.Background())
			stopped := make(chan struct{})
			go func() {
				scheduler.Run(ctx)
				close(stopped)
			}()

			select {
			case <-retrainer.done:
			case <-time.After(5 * time.Second):
				t.Fatal("scheduler did not run")
			}
			cancel()

			select {
			case <-stopped:
			case <-time.After(5 * time.Second):
				t.Fatal("scheduler did not stop")
			}

			retrainer.mu.Lock()
			defer retrainer.mu.Unlock()
			assert.GreaterOrEqual(t, retrainer.runs, 3)
		})
	}
}

func TestScheduler_StopsWithoutActivation(t *testing.T) {
	retrainer := &countingRetrainer{done: make(chan struct{})}
	NewScheduler(never{}, retrainer, zap.NewNop()).Run(context.Background())
	assert.Zero(t, retrainer.runs)
}

func TestScheduler_CanceledBeforeFirstRun(t *testing.T) {
	schedule, err := config.ParseSchedule("0 3 * * *")
	require.NoError(t, err)

	retrainer := &countingRetrainer{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewScheduler(schedule, retrainer, zap.NewNop()).Run(ctx)
	assert.Zero(t, retrainer.runs)
}
