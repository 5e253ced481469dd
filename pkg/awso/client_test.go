package awso

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(s string) *string {
	return &s
}

func fakeConfig(ctx context.Context) (aws.Config, error) {
	return aws.Config{Region: "eu-west-1"}, nil
}

func TestClientCaching(t *testing.T) {
	buildClientInvocations := 0
	var region string
	cp := NewClientProvider("us-east-1", func(cfg aws.Config) *string {
		buildClientInvocations++
		region = cfg.Region
		return p("dummy client")
	})
	cp.loadConfig = fakeConfig

	for i := 0; i < 5; i++ {
		client, err := cp.Client(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "dummy client", *client)
	}

	assert.Equal(t, 1, buildClientInvocations)
	assert.Equal(t, "us-east-1", region)
}

func TestInvalidateRebuilds(t *testing.T) {
	buildClientInvocations := 0
	cp := NewClientProvider("", func(cfg aws.Config) *string {
		buildClientInvocations++
		return p(cfg.Region)
	})
	cp.loadConfig = fakeConfig

	_, err := cp.Client(context.Background())
	require.NoError(t, err)
	cp.Invalidate()
	client, err := cp.Client(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, buildClientInvocations)
	assert.Equal(t, "eu-west-1", *client)
}

func TestConfigError(t *testing.T) {
	cp := NewClientProvider("", func(cfg aws.Config) *string { return p("unused") })
	cp.loadConfig = func(context.Context) (aws.Config, error) {
		return aws.Config{}, errors.New("no credentials")
	}

	_, err := cp.Client(context.Background())
	assert.ErrorContains(t, err, "no credentials")
}

func TestCheckExpired(t *testing.T) {
	expired := &smithy.GenericAPIError{Code: "ExpiredToken", Message: "token expired"}
	throttled := &smithy.GenericAPIError{Code: "Throttling", Message: "slow down"}

	assert.ErrorIs(t, CheckExpired(expired), ClientInvalidated)
	assert.ErrorIs(t, CheckExpired(expired), expired)
	assert.NotErrorIs(t, CheckExpired(throttled), ClientInvalidated)
	assert.NoError(t, CheckExpired(nil))
}
