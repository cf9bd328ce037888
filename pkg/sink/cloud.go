package sink

import (
	"bytes"
	"context"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/IBM/sarama"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
)

func deliverS3(ctx context.Context, t Target, data []byte, o *Options) error {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if o.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(o.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeConfig, "load AWS config")
	}

	uploader := manager.NewUploader(s3.NewFromConfig(cfg), func(u *manager.Uploader) {
		u.PartSize = 8 * 1024 * 1024
		u.Concurrency = 4
	})
	result, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(t.Bucket),
		Key:    aws.String(t.Path),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeConnection, "upload to S3").
			WithDetail("bucket", t.Bucket).
			WithDetail("key", t.Path)
	}
	o.Logger.Info("uploaded to S3", zap.String("location", result.Location))
	return nil
}

func deliverGCS(ctx context.Context, t Target, data []byte, o *Options) error {
	var opts []option.ClientOption
	if o.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeConnection, "create GCS client")
	}
	defer client.Close()

	w := client.Bucket(t.Bucket).Object(t.Path).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeConnection, "write GCS object").
			WithDetail("bucket", t.Bucket)
	}
	if err := w.Close(); err != nil {
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeConnection, "finalize GCS object").
			WithDetail("bucket", t.Bucket)
	}
	o.Logger.Info("uploaded to GCS", zap.String("object", "gs://"+t.Bucket+"/"+t.Path))
	return nil
}

func kafkaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = "kdbml"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	// one export is one message
	config.Producer.MaxMessageBytes = 64 * 1024 * 1024
	return config
}

func deliverKafka(_ context.Context, t Target, data []byte, o *Options) error {
	brokers := strings.Split(t.Bucket, ",")
	producer, err := sarama.NewSyncProducer(brokers, kafkaConfig())
	if err != nil {
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeConnection, "create Kafka producer").
			WithDetail("brokers", t.Bucket)
	}
	defer producer.Close()

	msg := &sarama.ProducerMessage{
		Topic: t.Path,
		Value: sarama.ByteEncoder(data),
	}
	if o.Key != "" {
		msg.Key = sarama.StringEncoder(o.Key)
	}
	partition, offset, err := producer.SendMessage(msg)
	if err != nil {
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeConnection, "send Kafka message").
			WithDetail("topic", t.Path)
	}
	o.Logger.Info("sent to Kafka",
		zap.String("topic", t.Path),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}
