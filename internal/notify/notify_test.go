package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type fakeSNS struct {
	created    []string
	subscribed *sns.SubscribeInput
	deleted    []string
	deleteErr  error
}

func (f *fakeSNS) CreateTopic(ctx context.Context, in *sns.CreateTopicInput, _ ...func(*sns.Options)) (*sns.CreateTopicOutput, error) {
	name := aws.ToString(in.Name)
	f.created = append(f.created, name)
	return &sns.CreateTopicOutput{TopicArn: aws.String("arn:aws:sns:eu-central-1:123:" + name)}, nil
}

func (f *fakeSNS) Subscribe(ctx context.Context, in *sns.SubscribeInput, _ ...func(*sns.Options)) (*sns.SubscribeOutput, error) {
	f.subscribed = in
	return &sns.SubscribeOutput{SubscriptionArn: aws.String("sub-1")}, nil
}

func (f *fakeSNS) DeleteTopic(ctx context.Context, in *sns.DeleteTopicInput, _ ...func(*sns.Options)) (*sns.DeleteTopicOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.TopicArn))
	return &sns.DeleteTopicOutput{}, f.deleteErr
}

type fakeSQS struct {
	mu sync.Mutex

	created      []string
	policy       string
	batches      [][]sqstypes.Message
	receives     int
	deletedMsgs  []string
	deletedQueue []string
	createErr    error
}

func (f *fakeSQS) CreateQueue(ctx context.Context, in *sqs.CreateQueueInput, _ ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	name := aws.ToString(in.QueueName)
	f.created = append(f.created, name)
	return &sqs.CreateQueueOutput{QueueUrl: aws.String("https://sqs.local/123/" + name)}, nil
}

func (f *fakeSQS) GetQueueAttributes(ctx context.Context, in *sqs.GetQueueAttributesInput, _ ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	return &sqs.GetQueueAttributesOutput{Attributes: map[string]string{"QueueArn": "arn:aws:sqs:eu-central-1:123:queue"}}, nil
}

func (f *fakeSQS) SetQueueAttributes(ctx context.Context, in *sqs.SetQueueAttributesInput, _ ...func(*sqs.Options)) (*sqs.SetQueueAttributesOutput, error) {
	f.policy = in.Attributes["Policy"]
	return &sqs.SetQueueAttributesOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receives++
	if len(f.batches) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &sqs.ReceiveMessageOutput{}, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedMsgs = append(f.deletedMsgs, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) DeleteQueue(ctx context.Context, in *sqs.DeleteQueueInput, _ ...func(*sqs.Options)) (*sqs.DeleteQueueOutput, error) {
	f.deletedQueue = append(f.deletedQueue, aws.ToString(in.QueueUrl))
	return &sqs.DeleteQueueOutput{}, nil
}

func notification(jobID, status string) string {
	inner, _ := json.Marshal(map[string]any{"JobId": jobID, "Status": status, "API": "StartDocumentAnalysis", "Timestamp": 1700000000000})
	outer, _ := json.Marshal(map[string]string{"Type": "Notification", "TopicArn": "topic", "Message": string(inner)})
	return string(outer)
}

func message(handle, body string) sqstypes.Message {
	return sqstypes.Message{ReceiptHandle: aws.String(handle), Body: aws.String(body)}
}

func newTestNotifier(s *fakeSNS, q *fakeSQS) *Notifier {
	n := New(s, q, Options{WaitSeconds: 0, IdleDelay: time.Millisecond, Timeout: time.Second})
	n.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return n
}

func TestCreate(t *testing.T) {
	s, q := &fakeSNS{}, &fakeSQS{}
	n := newTestNotifier(s, q)

	ch, err := n.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.created[0] != "AmazonTextractTopic1700000000123" || q.created[0] != "AmazonTextractQueue1700000000123" {
		t.Errorf("unexpected names %v %v", s.created, q.created)
	}
	if ch.QueueARN != "arn:aws:sqs:eu-central-1:123:queue" || n.Channel() != ch {
		t.Errorf("unexpected channel %+v", ch)
	}
	if aws.ToString(s.subscribed.Protocol) != "sqs" || aws.ToString(s.subscribed.Endpoint) != ch.QueueARN {
		t.Errorf("unexpected subscription %+v", s.subscribed)
	}

	var policy policyDocument
	if err := json.Unmarshal([]byte(q.policy), &policy); err != nil {
		t.Fatalf("policy is not JSON: %v", err)
	}
	stmt := policy.Statement[0]
	if stmt.Resource != ch.QueueARN || stmt.Condition["ArnEquals"]["aws:SourceArn"] != ch.TopicARN || stmt.Action != "SQS:SendMessage" {
		t.Errorf("unexpected policy %+v", stmt)
	}
}

func TestCreatePartialFailureCleansUp(t *testing.T) {
	s, q := &fakeSNS{}, &fakeSQS{createErr: errors.New("quota")}
	n := newTestNotifier(s, q)

	if _, err := n.Create(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if err := n.Delete(context.Background()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(s.deleted) != 1 || len(q.deletedQueue) != 0 {
		t.Errorf("expected only the topic to be deleted, got %v %v", s.deleted, q.deletedQueue)
	}
}

func TestParseNotification(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Completion
		wantErr bool
	}{
		{"valid", notification("job-1", "SUCCEEDED"), Completion{JobID: "job-1", Status: "SUCCEEDED", API: "StartDocumentAnalysis", Timestamp: 1700000000000}, false},
		{"not json", "hello", Completion{}, true},
		{"no message", `{"Type":"Notification"}`, Completion{}, true},
		{"message not json", `{"Message":"oops"}`, Completion{}, true},
		{"no job id", `{"Message":"{\"Status\":\"FAILED\"}"}`, Completion{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNotification(tt.body)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWaitForJob(t *testing.T) {
	s, q := &fakeSNS{}, &fakeSQS{}
	q.batches = [][]sqstypes.Message{
		{},
		{message("h1", notification("other-job", "SUCCEEDED")), message("h2", "garbage")},
		{message("h3", notification("job-1", "SUCCEEDED")), message("h4", notification("other-job", "FAILED"))},
	}
	n := newTestNotifier(s, q)
	if _, err := n.Create(context.Background()); err != nil {
		t.Fatal(err)
	}

	c, err := n.WaitForJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("WaitForJob() error = %v", err)
	}
	if c.Status != "SUCCEEDED" || c.JobID != "job-1" {
		t.Errorf("unexpected completion %+v", c)
	}
	if got := strings.Join(q.deletedMsgs, ","); got != "h1,h2,h3,h4" {
		t.Errorf("expected every message deleted, got %s", got)
	}
	if q.receives != 3 {
		t.Errorf("expected 3 receives, got %d", q.receives)
	}
}

func TestWaitForJobErrors(t *testing.T) {
	t.Run("no channel", func(t *testing.T) {
		n := newTestNotifier(&fakeSNS{}, &fakeSQS{})
		if _, err := n.WaitForJob(context.Background(), "job-1"); !errors.Is(err, ErrNoChannel) {
			t.Errorf("expected ErrNoChannel, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		s, q := &fakeSNS{}, &fakeSQS{}
		n := newTestNotifier(s, q)
		n.opts.Timeout = 20 * time.Millisecond
		if _, err := n.Create(context.Background()); err != nil {
			t.Fatal(err)
		}
		if _, err := n.WaitForJob(context.Background(), "job-1"); !errors.Is(err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	s, q := &fakeSNS{deleteErr: fmt.Errorf("denied")}, &fakeSQS{}
	n := newTestNotifier(s, q)
	if err := n.Delete(context.Background()); err != nil {
		t.Errorf("Delete without channel should be a no-op, got %v", err)
	}
	if _, err := n.Create(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := n.Delete(context.Background())
	if err == nil || !strings.Contains(err.Error(), "delete topic") {
		t.Errorf("expected topic deletion error, got %v", err)
	}
	if len(q.deletedQueue) != 1 {
		t.Error("queue should be deleted even when topic deletion fails")
	}
	if n.Channel() != nil {
		t.Error("channel should be cleared after Delete")
	}
}
