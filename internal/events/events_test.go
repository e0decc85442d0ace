package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testEvent() domain.Event {
	return domain.Event{
		ID:        7,
		Type:      domain.EventInvoicePaid,
		InvoiceID: 3,
		Payload:   json.RawMessage(`{"invoice_id":3}`),
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, evt domain.Event) error {
	return m.Called(ctx, evt).Error(0)
}

func TestFanout_JoinsErrors(t *testing.T) {
	ctx := context.Background()
	evt := testEvent()
	boom := errors.New("boom")

	ok := &mockPublisher{}
	ok.On("Publish", ctx, evt).Return(nil).Twice()
	failing := &mockPublisher{}
	failing.On("Publish", ctx, evt).Return(boom).Once()

	err := Fanout{failing, ok}.Publish(ctx, evt)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, Fanout{ok}.Publish(ctx, evt))

	ok.AssertExpectations(t)
	failing.AssertExpectations(t)
	ok.AssertNumberOfCalls(t, "Publish", 2)
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope(testEvent())
	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 7,
		"type": "invoice.paid",
		"invoice_id": 3,
		"occurred_at": "2024-01-01T12:00:00Z",
		"payload": {"invoice_id": 3}
	}`, string(data))
}

type fakeConfirm struct {
	result chan bool
}

func (c *fakeConfirm) WaitContext(ctx context.Context) (bool, error) {
	select {
	case ack := <-c.result:
		return ack, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	confirms  []*fakeConfirm
	err       error
	ack       *bool
}

func (c *fakeChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.published = append(c.published, msg)
	c.keys = append(c.keys, key)
	conf := &fakeConfirm{result: make(chan bool, 1)}
	if c.ack != nil {
		conf.result <- *c.ack
	}
	c.confirms = append(c.confirms, conf)
	return conf, nil
}

func (c *fakeChannel) Close() error { return nil }

// newFake answers every publish with ack right away. A nil ack leaves
// publishes unconfirmed.
func newFake(ack *bool) (*fakeChannel, *RabbitPublisher) {
	ch := &fakeChannel{ack: ack}
	p := newRabbitPublisher(ch, "invoicedesk.events")
	p.timeout = 50 * time.Millisecond
	return ch, p
}

func TestRabbitPublisher_Ack(t *testing.T) {
	ack := true
	ch, p := newFake(&ack)

	require.NoError(t, p.Publish(context.Background(), testEvent()))
	require.Len(t, ch.published, 1)
	assert.Equal(t, "invoice.paid", ch.keys[0])
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, "7", ch.published[0].MessageId)
	assert.Equal(t, "application/json", ch.published[0].ContentType)
}

func TestRabbitPublisher_Nack(t *testing.T) {
	ack := false
	_, p := newFake(&ack)
	err := p.Publish(context.Background(), testEvent())
	assert.ErrorContains(t, err, "nack")
}

func TestRabbitPublisher_Timeout(t *testing.T) {
	_, p := newFake(nil)
	err := p.Publish(context.Background(), testEvent())
	assert.ErrorContains(t, err, "timeout")
}

func TestRabbitPublisher_LateAckDoesNotConfirmNextEvent(t *testing.T) {
	ch, p := newFake(nil)
	first := testEvent()
	err := p.Publish(context.Background(), first)
	require.ErrorContains(t, err, "timeout")

	// The broker acks the first publish after it timed out, then nacks the next.
	ch.confirms[0].result <- true
	nack := false
	ch.ack = &nack

	second := testEvent()
	second.ID = 8
	err = p.Publish(context.Background(), second)
	assert.ErrorContains(t, err, "publish event 8: rabbitmq nack")
}

func TestRabbitPublisher_ContextCanceled(t *testing.T) {
	_, p := newFake(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, testEvent())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRabbitPublisher_PublishError(t *testing.T) {
	ch, p := newFake(nil)
	ch.err = amqp.ErrClosed
	err := p.Publish(context.Background(), testEvent())
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestLogPublisher(t *testing.T) {
	assert.NoError(t, LogPublisher{}.Publish(context.Background(), testEvent()))
}
