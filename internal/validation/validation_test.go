package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/contentanonymity/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequiredServicesReadsFlags(t *testing.T) {
	t.Setenv("CONTENTANONYMITY_REQUIRE_REDIS", "yes")
	t.Setenv("CONTENTANONYMITY_REQUIRE_S3", "0")
	t.Setenv("CONTENTANONYMITY_REQUIRE_ELASTICSEARCH", " TRUE ")

	assert.Equal(t, []string{"elasticsearch", "redis"}, parseRequiredServices())
}

func TestValidateServicesWithoutRequirements(t *testing.T) {
	sv := NewServiceValidator(&config.Config{})
	sv.requiredServices = nil
	assert.NoError(t, sv.ValidateServices(context.Background()))
}

func TestValidateServicesStopsAtFirstFailure(t *testing.T) {
	down := errors.New("connection refused")
	var called []string

	sv := NewServiceValidator(&config.Config{})
	sv.requiredServices = nil
	sv.SetCheck("redis", func(context.Context) error { called = append(called, "redis"); return nil }).
		SetCheck("s3", func(context.Context) error { called = append(called, "s3"); return down }).
		SetCheck("elasticsearch", func(context.Context) error { called = append(called, "elasticsearch"); return nil }).
		Require("redis", "S3", "elasticsearch", "redis")

	assert.Equal(t, []string{"redis", "s3", "elasticsearch"}, sv.Required())

	err := sv.ValidateServices(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), `"s3"`)
	assert.Equal(t, []string{"redis", "s3"}, called)
}

func TestUnknownServiceIsSkipped(t *testing.T) {
	sv := NewServiceValidator(&config.Config{})
	sv.requiredServices = nil
	sv.Require("gopher-cloud")
	assert.NoError(t, sv.ValidateServices(context.Background()))
}

func TestMissingConfigFailsFast(t *testing.T) {
	cfg := &config.Config{}
	assert.Error(t, validateElasticsearch(context.Background(), cfg))
	assert.Error(t, validateS3(context.Background(), cfg))
}
