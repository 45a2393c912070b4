// Package notify manages the SNS topic and SQS queue an analysis job reports
// its completion through.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const (
	TopicPrefix = "AmazonTextractTopic"
	QueuePrefix = "AmazonTextractQueue"
)

var (
	// ErrNoChannel is returned when waiting before Create succeeded.
	ErrNoChannel = errors.New("notification channel not created")
	// ErrTimeout is returned when no matching notification arrived in time.
	ErrTimeout = errors.New("timed out waiting for job notification")
)

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	CreateTopic(ctx context.Context, in *sns.CreateTopicInput, optFns ...func(*sns.Options)) (*sns.CreateTopicOutput, error)
	Subscribe(ctx context.Context, in *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error)
	DeleteTopic(ctx context.Context, in *sns.DeleteTopicInput, optFns ...func(*sns.Options)) (*sns.DeleteTopicOutput, error)
}

// SQSAPI is the subset of the SQS client used here.
type SQSAPI interface {
	CreateQueue(ctx context.Context, in *sqs.CreateQueueInput, optFns ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error)
	GetQueueAttributes(ctx context.Context, in *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
	SetQueueAttributes(ctx context.Context, in *sqs.SetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.SetQueueAttributesOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	DeleteQueue(ctx context.Context, in *sqs.DeleteQueueInput, optFns ...func(*sqs.Options)) (*sqs.DeleteQueueOutput, error)
}

// Channel identifies the resources created for one run.
type Channel struct {
	TopicARN        string `json:"topic_arn" yaml:"topic_arn"`
	QueueURL        string `json:"queue_url" yaml:"queue_url"`
	QueueARN        string `json:"queue_arn" yaml:"queue_arn"`
	SubscriptionARN string `json:"subscription_arn,omitempty" yaml:"subscription_arn,omitempty"`
}

// Options configures a Notifier.
type Options struct {
	WaitSeconds int           // long-poll wait per receive, at most 20
	MaxMessages int           // messages per receive, at most 10
	Timeout     time.Duration // overall wait budget
	IdleDelay   time.Duration // pause between empty receives when not long-polling
	Logger      *slog.Logger
}

// Notifier owns one notification channel.
type Notifier struct {
	sns    SNSAPI
	sqs    SQSAPI
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	channel *Channel
}

// New creates a notifier. Call Create before WaitForJob.
func New(snsAPI SNSAPI, sqsAPI SQSAPI, opts Options) *Notifier {
	if opts.WaitSeconds < 0 || opts.WaitSeconds > 20 {
		opts.WaitSeconds = 20
	}
	if opts.MaxMessages <= 0 || opts.MaxMessages > 10 {
		opts.MaxMessages = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.IdleDelay <= 0 {
		opts.IdleDelay = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sns: snsAPI, sqs: sqsAPI, opts: opts, logger: logger, now: time.Now}
}

// Channel returns the created channel, or nil.
func (n *Notifier) Channel() *Channel {
	return n.channel
}

// Create makes a topic and a queue named with the current time in
// milliseconds, subscribes the queue to the topic and restricts the queue so
// only that topic can send to it.
func (n *Notifier) Create(ctx context.Context) (*Channel, error) {
	millis := n.now().UnixMilli()
	topicName := fmt.Sprintf("%s%d", TopicPrefix, millis)
	queueName := fmt.Sprintf("%s%d", QueuePrefix, millis)

	topic, err := n.sns.CreateTopic(ctx, &sns.CreateTopicInput{Name: aws.String(topicName)})
	if err != nil {
		return nil, fmt.Errorf("failed to create topic %s: %w", topicName, err)
	}
	ch := &Channel{TopicARN: aws.ToString(topic.TopicArn)}
	// Set early so Delete can remove a partially created channel.
	n.channel = ch

	queue, err := n.sqs.CreateQueue(ctx, &sqs.CreateQueueInput{QueueName: aws.String(queueName)})
	if err != nil {
		return nil, fmt.Errorf("failed to create queue %s: %w", queueName, err)
	}
	ch.QueueURL = aws.ToString(queue.QueueUrl)

	attrs, err := n.sqs.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(ch.QueueURL),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read queue arn: %w", err)
	}
	ch.QueueARN = attrs.Attributes[string(sqstypes.QueueAttributeNameQueueArn)]
	if ch.QueueARN == "" {
		return nil, fmt.Errorf("queue %s has no arn", queueName)
	}

	sub, err := n.sns.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: aws.String(ch.TopicARN),
		Protocol: aws.String("sqs"),
		Endpoint: aws.String(ch.QueueARN),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe queue to topic: %w", err)
	}
	ch.SubscriptionARN = aws.ToString(sub.SubscriptionArn)

	policy, err := QueuePolicy(ch.QueueARN, ch.TopicARN)
	if err != nil {
		return nil, err
	}
	_, err = n.sqs.SetQueueAttributes(ctx, &sqs.SetQueueAttributesInput{
		QueueUrl:   aws.String(ch.QueueURL),
		Attributes: map[string]string{string(sqstypes.QueueAttributeNamePolicy): policy},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set queue policy: %w", err)
	}

	n.logger.Info("notification channel created", "topic", ch.TopicARN, "queue", ch.QueueURL)
	return ch, nil
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string                       `json:"Sid"`
	Effect    string                       `json:"Effect"`
	Principal map[string]string            `json:"Principal"`
	Action    string                       `json:"Action"`
	Resource  string                       `json:"Resource"`
	Condition map[string]map[string]string `json:"Condition"`
}

// QueuePolicy allows only topicARN to send messages to queueARN.
func QueuePolicy(queueARN, topicARN string) (string, error) {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "AllowTextractTopic",
			Effect:    "Allow",
			Principal: map[string]string{"AWS": "*"},
			Action:    "SQS:SendMessage",
			Resource:  queueARN,
			Condition: map[string]map[string]string{
				"ArnEquals": {"aws:SourceArn": topicARN},
			},
		}},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode queue policy: %w", err)
	}
	return string(data), nil
}

// Completion is the job completion message published by the service.
type Completion struct {
	JobID     string `json:"JobId"`
	Status    string `json:"Status"`
	API       string `json:"API"`
	JobTag    string `json:"JobTag,omitempty"`
	Timestamp int64  `json:"Timestamp,omitempty"`
}

type envelope struct {
	Type     string `json:"Type"`
	TopicArn string `json:"TopicArn"`
	Message  string `json:"Message"`
}

// ParseNotification decodes an SQS message body holding an SNS envelope
// around a job completion message.
func ParseNotification(body string) (Completion, error) {
	var env envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return Completion{}, fmt.Errorf("invalid notification envelope: %w", err)
	}
	if strings.TrimSpace(env.Message) == "" {
		return Completion{}, errors.New("notification envelope has no message")
	}
	var c Completion
	if err := json.Unmarshal([]byte(env.Message), &c); err != nil {
		return Completion{}, fmt.Errorf("invalid completion message: %w", err)
	}
	if c.JobID == "" {
		return Completion{}, errors.New("completion message has no job id")
	}
	return c, nil
}

// WaitForJob receives from the queue until the completion for jobID
// arrives. Every received message is deleted, including ones for other jobs
// and ones that cannot be parsed.
func (n *Notifier) WaitForJob(ctx context.Context, jobID string) (Completion, error) {
	if n.channel == nil || n.channel.QueueURL == "" {
		return Completion{}, ErrNoChannel
	}
	ctx, cancel := context.WithTimeout(ctx, n.opts.Timeout)
	defer cancel()

	for {
		out, err := n.sqs.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(n.channel.QueueURL),
			MaxNumberOfMessages:   int32(n.opts.MaxMessages),
			WaitTimeSeconds:       int32(n.opts.WaitSeconds),
			MessageAttributeNames: []string{"All"},
		})
		if err != nil {
			if ctx.Err() != nil {
				return Completion{}, n.waitErr(ctx, jobID)
			}
			return Completion{}, fmt.Errorf("failed to receive from queue: %w", err)
		}

		var found *Completion
		for _, msg := range out.Messages {
			c, perr := ParseNotification(aws.ToString(msg.Body))
			switch {
			case perr != nil:
				n.logger.Warn("discarding unreadable notification", "error", perr)
			case c.JobID == jobID:
				n.logger.Info("job notification received", "job_id", c.JobID, "status", c.Status)
				found = &c
			default:
				n.logger.Debug("ignoring notification for another job", "job_id", c.JobID, "waiting_for", jobID)
			}
			n.deleteMessage(ctx, msg.ReceiptHandle)
		}
		if found != nil {
			return *found, nil
		}

		if len(out.Messages) == 0 && n.opts.WaitSeconds == 0 {
			select {
			case <-ctx.Done():
				return Completion{}, n.waitErr(ctx, jobID)
			case <-time.After(n.opts.IdleDelay):
			}
		} else if ctx.Err() != nil {
			return Completion{}, n.waitErr(ctx, jobID)
		}
	}
}

func (n *Notifier) waitErr(ctx context.Context, jobID string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, jobID, n.opts.Timeout)
	}
	return ctx.Err()
}

func (n *Notifier) deleteMessage(ctx context.Context, handle *string) {
	_, err := n.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(n.channel.QueueURL),
		ReceiptHandle: handle,
	})
	if err != nil {
		n.logger.Warn("failed to delete notification", "error", err)
	}
}

// Delete removes the queue and the topic. Both deletions are attempted;
// failures are logged and returned joined.
func (n *Notifier) Delete(ctx context.Context) error {
	ch := n.channel
	if ch == nil {
		return nil
	}
	var errs []error
	if ch.QueueURL != "" {
		if _, err := n.sqs.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: aws.String(ch.QueueURL)}); err != nil {
			n.logger.Warn("failed to delete queue", "queue", ch.QueueURL, "error", err)
			errs = append(errs, fmt.Errorf("delete queue: %w", err))
		}
	}
	if ch.TopicARN != "" {
		if _, err := n.sns.DeleteTopic(ctx, &sns.DeleteTopicInput{TopicArn: aws.String(ch.TopicARN)}); err != nil {
			n.logger.Warn("failed to delete topic", "topic", ch.TopicARN, "error", err)
			errs = append(errs, fmt.Errorf("delete topic: %w", err))
		}
	}
	n.channel = nil
	if len(errs) == 0 {
		n.logger.Info("notification channel deleted", "topic", ch.TopicARN, "queue", ch.QueueURL)
	}
	return errors.Join(errs...)
}
