package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "branchstock/internal/core/context"
	"branchstock/internal/core/id"
	"branchstock/pkg/logger"
)

type failingSink struct{ calls int }

func (s *failingSink) Write(context.Context, Event) error {
	s.calls++
	return errors.New("disk full")
}

type captureSink struct{ events []Event }

func (s *captureSink) Write(_ context.Context, e Event) error {
	s.events = append(s.events, e)
	return nil
}

func observed() (context.Context, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}
	return logger.WithLogger(context.Background(), l), logs
}

func TestRecorder_SinkFailureIsSwallowed(t *testing.T) {
	ctx, logs := observed()
	sink := &failingSink{}

	NewRecorder(sink).Record(ctx, appctx.Actor{Name: "ana"}, Event{
		Kind:       KindTransferCreated,
		EntityType: "transfer",
		EntityID:   id.New(),
	})

	assert.Equal(t, 1, sink.calls)
	require.Equal(t, 1, logs.FilterMessage("audit sink write failed").Len())
	assert.Equal(t, 1, logs.FilterField(zap.String("actor", "ana")).Len())
}

func TestRecorder_FillsActor(t *testing.T) {
	ctx, _ := observed()
	sink := &captureSink{}
	actor := appctx.Actor{UserID: id.New()}

	NewRecorder(sink).Record(ctx, actor, Event{Kind: KindTransferReceived})

	require.Len(t, sink.events, 1)
	assert.Equal(t, actor.UserID.String(), sink.events[0].Actor)
	assert.Equal(t, actor.UserID, sink.events[0].ActorID)
	assert.False(t, sink.events[0].OccurredAt.IsZero())
}

func TestRecorder_NilSink(t *testing.T) {
	ctx, logs := observed()
	NewRecorder(nil).Record(ctx, appctx.Actor{}, Event{Kind: KindLotCreated})
	assert.Equal(t, 1, logs.FilterField(zap.String("actor", "system")).Len())
}
