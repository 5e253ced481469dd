package heartbeats

import (
	"context"
	"errors"
	"log"

	"dancavallaro.com/sppchat/pkg/awso"
	"dancavallaro.com/sppchat/pkg/chat"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	ReplyMetric      = "Reply"
	EmptyReplyMetric = "EmptyReply"
)

type MetricPutter interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

type CloudwatchClientProvider interface {
	Client(ctx context.Context) (MetricPutter, error)
	Invalidate()
}

type cloudwatchProvider struct {
	cp *awso.ClientProvider[cloudwatch.Client]
}

func NewCloudwatchClientProvider(region string, logger Logger) CloudwatchClientProvider {
	cp := awso.NewClientProvider(region, func(cfg aws.Config) *cloudwatch.Client {
		if logger != nil {
			logger.Println("Creating new Cloudwatch client")
		}
		return cloudwatch.NewFromConfig(cfg)
	})
	return cloudwatchProvider{&cp}
}

func (p cloudwatchProvider) Client(ctx context.Context) (MetricPutter, error) {
	client, err := p.cp.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (p cloudwatchProvider) Invalidate() {
	p.cp.Invalidate()
}

// CloudwatchPublisher counts replies per device. An exchange whose reply
// came back empty (usually a read timeout) is counted as EmptyReply.
type CloudwatchPublisher struct {
	cw              CloudwatchClientProvider
	metricNamespace string
	deviceDimension string
	logger          Logger
}

func NewCloudwatchPublisher(
	cw CloudwatchClientProvider, metricNamespace string, deviceDimension string, logger Logger,
) CloudwatchPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return CloudwatchPublisher{cw, metricNamespace, deviceDimension, logger}
}

func (pub CloudwatchPublisher) Observe(ex chat.Exchange) error {
	metric := ReplyMetric
	if ex.Reply == "" {
		metric = EmptyReplyMetric
	}
	device := TopicID(ex.Device)

	if err := pub.publish(metric, device); err != nil {
		if !errors.Is(err, awso.ClientInvalidated) {
			return err
		}

		pub.logger.Println("IAM creds are expired, reloading them and retrying")
		pub.cw.Invalidate()

		if err := pub.publish(metric, device); err != nil {
			return err
		}
	}
	return nil
}

func (pub CloudwatchPublisher) publish(metric string, device string) error {
	ctx := context.TODO()
	client, err := pub.cw.Client(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(pub.metricNamespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metric),
				Dimensions: []types.Dimension{
					{
						Name:  aws.String(pub.deviceDimension),
						Value: &device,
					},
				},
				Value: aws.Float64(1),
				Unit:  types.StandardUnitCount,
			},
		},
	})
	if err != nil {
		return awso.CheckExpired(err)
	}

	pub.logger.Printf("Published %s metric for device %s\n", metric, device)
	return nil
}
