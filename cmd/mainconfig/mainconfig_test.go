package mainconfig

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/medspa-practice/internal/config"
	"github.com/wolfman30/medspa-practice/pkg/logging"
)

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	cfg := &appconfig.Config{AWSRegion: "eu-west-1", AWSAccessKeyID: "AKIATEST", AWSSecretAccessKey: "secret"}
	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIATEST", creds.AccessKeyID)
}

func TestClientsHonourEndpointOverride(t *testing.T) {
	cfg := &appconfig.Config{AWSRegion: "us-east-1", AWSEndpointOverride: "http://localstack:4566"}
	awsCfg := aws.Config{Region: "us-east-1"}

	assert.Equal(t, "http://localstack:4566", aws.ToString(NewSQSClient(awsCfg, cfg).Options().BaseEndpoint))
	assert.Equal(t, "http://localstack:4566", aws.ToString(NewSESClient(awsCfg, cfg).Options().BaseEndpoint))
	assert.Nil(t, NewSQSClient(awsCfg, &appconfig.Config{}).Options().BaseEndpoint)
}

func TestOpenPoolRequiresURL(t *testing.T) {
	_, err := OpenPool(context.Background(), &appconfig.Config{})
	require.Error(t, err)
}

func TestConnectWithoutDatabase(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{
		RedisAddr:          mr.Addr(),
		AWSRegion:          "us-east-1",
		AWSAccessKeyID:     "test",
		AWSSecretAccessKey: "test",
	}

	deps, cleanup, err := Connect(context.Background(), cfg, logging.New("error"))
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, deps.Pool)
	assert.Nil(t, deps.SQL)
	assert.NotNil(t, deps.Redis)
	assert.NotNil(t, deps.SQS)
	assert.NotNil(t, deps.SES)
}

func TestOpenSQLIsLazy(t *testing.T) {
	db, err := openSQL("postgres://user:pw@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
