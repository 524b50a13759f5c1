package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KimiAn12/StartUpIdea/internal/analyses"
)

type fakeSQS struct {
	sent []*sqs.SendMessageInput
	err  error
}

func (f *fakeSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(context.Context, *sqs.DeleteMessageInput, ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeWriter struct {
	written []kafka.Message
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var fixedNow = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }

func TestDispatcherSendsToSQSWithRequestID(t *testing.T) {
	api := &fakeSQS{}
	d := &Dispatcher{Client: &SQSClient{API: api, QueueURL: "https://sqs.local/q"}, Now: fixedNow}

	ctx := analyses.WithRequestID(context.Background(), "req-9")
	require.NoError(t, d.Dispatch(ctx, "analysis-1"))

	require.Len(t, api.sent, 1)
	assert.Equal(t, "https://sqs.local/q", aws.ToString(api.sent[0].QueueUrl))
	msg, err := DecodeMessage([]byte(aws.ToString(api.sent[0].MessageBody)))
	require.NoError(t, err)
	assert.Equal(t, NewMessage("analysis-1", "req-9", fixedNow()), msg)
}

func TestDispatcherWrapsSendError(t *testing.T) {
	boom := errors.New("throttled")
	d := &Dispatcher{Client: &SQSClient{API: &fakeSQS{err: boom}, QueueURL: "q"}}

	err := d.Dispatch(context.Background(), "analysis-2")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "analysis-2")
}

func TestKafkaClientKeysByAnalysisID(t *testing.T) {
	w := &fakeWriter{}
	client := &KafkaClient{Writer: w}

	require.NoError(t, client.Send(context.Background(), NewMessage("analysis-3", "", fixedNow())))
	require.NoError(t, client.Close())

	require.Len(t, w.written, 1)
	assert.Equal(t, "analysis-3", string(w.written[0].Key))
	msg, err := DecodeMessage(w.written[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "analysis-3", msg.AnalysisID)
	assert.True(t, w.closed)
}

func TestConstructorsRequireSettings(t *testing.T) {
	_, err := NewSQSClient(context.Background(), "us-east-1", " ")
	assert.Error(t, err)
	_, err = NewKafkaClient(nil, "topic")
	assert.Error(t, err)
	_, err = NewKafkaReader([]string{"localhost:9092"}, "topic", "")
	assert.Error(t, err)
}
