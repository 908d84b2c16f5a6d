package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hackgods/carehome-allocation/internal/care"
)

type fakeChannel struct {
	key  string
	msgs []amqp.Publishing
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.key = key
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestPublisher_Record(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, DefaultQueue, zap.NewNop())

	p.Record(context.Background(), "MGR01", care.ActionAddPatient, "P01", "admitted to bed W1R2B1")

	require.Len(t, ch.msgs, 1)
	msg := ch.msgs[0]
	assert.Equal(t, DefaultQueue, ch.key)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "ADD_PATIENT", msg.Type)

	var e Entry
	require.NoError(t, json.Unmarshal(msg.Body, &e))
	assert.Equal(t, msg.MessageId, e.ID)
	assert.Equal(t, "MGR01", e.ActorID)
	assert.Equal(t, care.ActionAddPatient, e.Action)
	assert.Equal(t, "P01", e.TargetID)
	assert.False(t, e.RecordedAt.IsZero())
}

func TestPublisher_FailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	p := newPublisher(&fakeChannel{err: errors.New("channel closed")}, DefaultQueue, zap.New(core))

	assert.NotPanics(t, func() {
		p.Record(context.Background(), "MGR01", care.ActionDischargePatient, "P01", "discharged")
	})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "publish audit entry", logs.All()[0].Message)
	assert.NoError(t, p.Close())
}

func TestLogRecorderAndMulti(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ch := &fakeChannel{}
	m := Multi{NewLogRecorder(zap.New(core)), newPublisher(ch, "q", zap.NewNop())}

	m.Record(context.Background(), "NUR01", care.ActionMovePatient, "P02", "moved from W1R3B1 to W1R3B2")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "NUR01", fields["actor_id"])
	assert.Equal(t, "MOVE_PATIENT", fields["action"])
	assert.Equal(t, "P02", fields["target_id"])
	assert.Len(t, ch.msgs, 1)
}
