package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/currency-exchange-api/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewPublisher_DisabledWithoutBrokers(t *testing.T) {
	assert.Nil(t, NewPublisher(nil, "transactions"))
	assert.Nil(t, NewPublisher([]string{"localhost:9092"}, ""))
	assert.NotNil(t, NewPublisher([]string{"localhost:9092"}, "transactions"))
}

func TestNilPublisher_IsNoop(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.PublishTransaction(context.Background(), domain.TransactionEvent{Transaction: &domain.Transaction{}}))
	assert.NoError(t, p.Close())
}

func TestPublishTransaction_KeyedByUser(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := domain.TransactionEvent{
		Type:        domain.EventTransactionCompleted,
		Transaction: &domain.Transaction{TransactionID: "t1", UserID: "u1", Reference: "TXN-1"},
		OccurredAt:  at,
	}

	require.NoError(t, p.PublishTransaction(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "u1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, "event_type", msg.Headers[0].Key)

	var decoded domain.TransactionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "TXN-1", decoded.Transaction.Reference)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishTransaction_PropagatesWriteError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("leader not available")}}
	err := p.PublishTransaction(context.Background(), domain.TransactionEvent{Transaction: &domain.Transaction{UserID: "u1"}})
	assert.Error(t, err)
}
