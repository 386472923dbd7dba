package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "shop-prod"}

	assert.Equal(t, "projects/shop-prod/topics/sf-order-events", c.topicResourceName("sf-order-events"))
	assert.Equal(t, "projects/other/topics/x", c.topicResourceName("projects/other/topics/x"))
	assert.Equal(t, "projects/shop-prod/subscriptions/orders-sub", c.subscriptionResourceName(" orders-sub "))
	assert.Empty(t, c.topicResourceName(" "))

	var nilClient *Client
	assert.Empty(t, nilClient.topicResourceName("x"))
	assert.Nil(t, nilClient.Publisher("x"))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "t"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestPingUninitialized(t *testing.T) {
	var c *Client
	assert.Error(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}

func TestClientOptions(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{}))
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/etc/gcp.json"}), 1)
}
