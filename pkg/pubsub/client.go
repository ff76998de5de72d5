package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/crispyspin/crispyspin-backend/pkg/config"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

var (
	errNoProject = errors.New("pubsub: gcp project id is required")
	errNoTopic   = errors.New("pubsub: topic name is required")
	errClosed    = errors.New("pubsub: client not initialized")
)

// Client owns the Pub/Sub connection used by the outbox relay.
type Client struct {
	client  *pubsub.Client
	project string
	topic   string
}

// NewClient dials Pub/Sub and fails fast when the domain topic is missing;
// topics are provisioned outside this service.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errNoProject
	}
	topic, err := TopicName(project, cfg.DomainTopic)
	if err != nil {
		return nil, err
	}

	raw, err := pubsub.NewClient(ctx, project, dialOptions(gcp, cfg)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: dial: %w", err)
	}
	c := &Client{client: raw, project: project, topic: topic}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topic":    topic,
			"emulator": cfg.EmulatorHost != "",
		}), "pubsub.connected")
	}
	return c, nil
}

// dialOptions picks credentials in order: emulator, inline JSON, key file,
// then application default credentials.
func dialOptions(gcp config.GCPConfig, cfg config.PubSubConfig) []option.ClientOption {
	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		return []option.ClientOption{
			option.WithEndpoint(host),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		}
	}
	if inline := strings.TrimSpace(gcp.CredentialsJSON); inline != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(inline))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// TopicName expands a bare topic id into its resource name. Fully qualified
// names pass through untouched.
func TopicName(project, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return "", errNoTopic
	case strings.HasPrefix(topic, "projects/"):
		if parts := strings.Split(topic, "/"); len(parts) != 4 || parts[2] != "topics" || parts[1] == "" || parts[3] == "" {
			return "", fmt.Errorf("pubsub: malformed topic resource %q", topic)
		}
		return topic, nil
	case strings.TrimSpace(project) == "":
		return "", errNoProject
	}
	return "projects/" + strings.TrimSpace(project) + "/topics/" + topic, nil
}

// DomainTopic is the resource name of the topic domain events go to.
func (c *Client) DomainTopic() string {
	if c == nil {
		return ""
	}
	return c.topic
}

// OrderedPublisher returns a publisher for topic with ordering keys honored.
func (c *Client) OrderedPublisher(topic string) (*pubsub.Publisher, error) {
	if c == nil || c.client == nil {
		return nil, errClosed
	}
	name, err := TopicName(c.project, topic)
	if err != nil {
		return nil, err
	}
	pub := c.client.Publisher(name)
	pub.EnableMessageOrdering = true
	return pub, nil
}

// Ping checks that the domain topic is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errClosed
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("pubsub: topic %s does not exist", c.topic)
	default:
		return fmt.Errorf("pubsub: get topic %s: %w", c.topic, err)
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
