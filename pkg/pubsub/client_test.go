package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crispyspin/crispyspin-backend/pkg/config"
)

func TestTopicName(t *testing.T) {
	cases := []struct {
		project, topic, want string
	}{
		{project: "crispy-prod", topic: "domain-events", want: "projects/crispy-prod/topics/domain-events"},
		{project: "crispy-prod", topic: " domain-events ", want: "projects/crispy-prod/topics/domain-events"},
		{project: "", topic: "projects/other/topics/domain-events", want: "projects/other/topics/domain-events"},
	}
	for _, tc := range cases {
		got, err := TopicName(tc.project, tc.topic)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestTopicNameRejects(t *testing.T) {
	for _, tc := range []struct{ project, topic string }{
		{project: "crispy-prod", topic: ""},
		{project: "", topic: "domain-events"},
		{project: "crispy-prod", topic: "projects/crispy-prod/subscriptions/relay"},
		{project: "crispy-prod", topic: "projects//topics/x"},
	} {
		_, err := TopicName(tc.project, tc.topic)
		assert.Error(t, err, "%q %q", tc.project, tc.topic)
	}
}

func TestDialOptions(t *testing.T) {
	gcp := config.GCPConfig{ProjectID: "crispy-prod"}
	assert.Empty(t, dialOptions(gcp, config.PubSubConfig{}))

	gcp.CredentialsJSON = `{"type":"service_account"}`
	gcp.ApplicationCredentials = "/etc/gcp/key.json"
	assert.Len(t, dialOptions(gcp, config.PubSubConfig{}), 1)

	assert.Len(t, dialOptions(gcp, config.PubSubConfig{EmulatorHost: "localhost:8085"}), 3)
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.Empty(t, c.DomainTopic())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), errClosed)
	_, err := c.OrderedPublisher("domain-events")
	assert.ErrorIs(t, err, errClosed)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{DomainTopic: "x"}, nil)
	assert.ErrorIs(t, err, errNoProject)
}
