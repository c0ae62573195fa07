package mirror_test

import (
	"testing"

	"github.com/addresskit/addresskit/internal/mirror"
)

func TestNewClient_RegionOnlyConfig(t *testing.T) {
	cfg := mirror.Config{Region: "ap-southeast-2"}
	client, err := mirror.NewClient(t.Context(), cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client == nil {
		t.Fatal("NewClient returned a nil client")
	}
}

func TestConfig_AcceptsStaticCredentialsAndEndpointOverride(t *testing.T) {
	cfg := mirror.Config{
		Region:          "us-east-1",
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret",
		Endpoint:        "http://127.0.0.1:9000",
		UsePathStyle:    true,
	}
	if _, err := mirror.NewClient(t.Context(), cfg); err != nil {
		t.Fatalf("NewClient with static credentials and endpoint override: %v", err)
	}
}
