package awso

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/smithy-go"
)

// ClientInvalidated wraps errors caused by expired or revoked credentials.
// Callers should drop their cached client and try again.
var ClientInvalidated = errors.New("aws client credentials are no longer valid")

var expiredCodes = map[string]bool{
	"ExpiredToken":          true,
	"ExpiredTokenException": true,
	"RequestExpired":        true,
	"InvalidClientTokenId":  true,
}

// CheckExpired returns err wrapped with ClientInvalidated when the API
// rejected the request's credentials, and err unchanged otherwise.
func CheckExpired(err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) && expiredCodes[ae.ErrorCode()] {
		return fmt.Errorf("%w: %w", ClientInvalidated, err)
	}
	return err
}

type ClientProvider[T any] struct {
	buildClient func(cfg aws.Config) *T
	loadConfig  func(ctx context.Context) (aws.Config, error)
	region      string
	client      *T
}

func NewClientProvider[T any](region string, buildClient func(cfg aws.Config) *T) ClientProvider[T] {
	return ClientProvider[T]{
		buildClient: buildClient,
		region:      region,
		loadConfig: func(ctx context.Context) (aws.Config, error) {
			return config.LoadDefaultConfig(ctx)
		},
	}
}

func (cp *ClientProvider[T]) Client(ctx context.Context) (*T, error) {
	if cp.client == nil {
		cfg, err := cp.loadConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		if cp.region != "" {
			cfg.Region = cp.region
		}
		cp.client = cp.buildClient(cfg)
	}
	return cp.client, nil
}

// Invalidate drops the cached client so the next call reloads credentials.
func (cp *ClientProvider[T]) Invalidate() {
	cp.client = nil
}
