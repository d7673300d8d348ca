package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricealert/internal/models"
)

func testAlert(t *testing.T, market models.Market, symbol string) *models.Alert {
	t.Helper()
	a, err := models.NewAlert("a1", "u1", market, symbol, 10, 100, time.Now())
	require.NoError(t, err)
	return a
}

func TestAlertMessageEnglish(t *testing.T) {
	a := testAlert(t, models.MarketCrypto, "XYZUSDT")
	msg := AlertMessage("tok", "en", a, 110, models.DirectionAbove)

	assert.Equal(t, "tok", msg.Token)
	assert.Equal(t, "XYZUSDT price alert", msg.Title)
	assert.Contains(t, msg.Body, "increased")
	assert.Contains(t, msg.Body, "110.00")
	assert.Contains(t, msg.Body, "10%")
	assert.Equal(t, "above", msg.Data["direction"])
}

func TestAlertMessageTurkishMetal(t *testing.T) {
	a := testAlert(t, models.MarketMetal, "XAU-TRY")
	msg := AlertMessage("tok", "tr-TR", a, 89.999, models.DirectionBelow)

	assert.Equal(t, "Gram Altın (TRY) fiyat alarmı", msg.Title)
	assert.Contains(t, msg.Body, "düştü")
	assert.Contains(t, msg.Body, "90.00")
}

func TestUnknownLanguageFallsBackToEnglish(t *testing.T) {
	a := testAlert(t, models.MarketForeignEquity, "AAPL")
	msg := AlertMessage("tok", "de", a, 50, models.DirectionBelow)
	assert.Contains(t, msg.Body, "decreased")
}

type fakeProducer struct {
	produced   []*kafka.Message
	produceErr error
	deliverErr error
	silent     bool
	closed     bool
}

func (p *fakeProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	if p.produceErr != nil {
		return p.produceErr
	}
	p.produced = append(p.produced, msg)
	if !p.silent {
		report := *msg
		report.TopicPartition.Error = p.deliverErr
		deliveryChan <- &report
	}
	return nil
}

func (p *fakeProducer) Flush(int) int { return 0 }
func (p *fakeProducer) Close()        { p.closed = true }

func TestKafkaDispatcherProducesKeyedJSON(t *testing.T) {
	p := &fakeProducer{}
	d := NewKafkaDispatcher(p, "push.notifications")

	err := d.Dispatch(context.Background(), Message{Token: "tok-1", Title: "t", Body: "b"})
	require.NoError(t, err)
	require.Len(t, p.produced, 1)

	m := p.produced[0]
	assert.Equal(t, "push.notifications", *m.TopicPartition.Topic)
	assert.Equal(t, "tok-1", string(m.Key))

	var decoded Message
	require.NoError(t, json.Unmarshal(m.Value, &decoded))
	assert.Equal(t, "b", decoded.Body)

	d.Close()
	assert.True(t, p.closed)
}

func TestKafkaDispatcherReportsFailures(t *testing.T) {
	d := NewKafkaDispatcher(&fakeProducer{produceErr: errors.New("queue full")}, "topic")
	assert.Error(t, d.Dispatch(context.Background(), Message{Token: "t"}))

	d = NewKafkaDispatcher(&fakeProducer{deliverErr: errors.New("broker down")}, "topic")
	assert.Error(t, d.Dispatch(context.Background(), Message{Token: "t"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d = NewKafkaDispatcher(&fakeProducer{silent: true}, "topic")
	assert.ErrorIs(t, d.Dispatch(ctx, Message{Token: "t"}), context.DeadlineExceeded)
}

type fakePublisher struct {
	channel, message string
	err              error
}

func (p *fakePublisher) Publish(ctx context.Context, channel, message string) error {
	p.channel, p.message = channel, message
	return p.err
}

func TestRedisDispatcher(t *testing.T) {
	pub := &fakePublisher{}
	d := NewRedisDispatcher(pub, "push_notifications")

	require.NoError(t, d.Dispatch(context.Background(), Message{Token: "tok", Body: "hello"}))
	assert.Equal(t, "push_notifications", pub.channel)
	assert.Contains(t, pub.message, `"body":"hello"`)

	pub.err = errors.New("redis down")
	assert.Error(t, d.Dispatch(context.Background(), Message{Token: "tok"}))
}
