package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// TopicSpec describes a topic the service expects to exist.
type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
	RetentionMs       string
}

// EnsureTopic creates the topic when missing. An existing topic is left as is.
func EnsureTopic(ctx context.Context, client *kgo.Client, spec TopicSpec) error {
	adm := kadm.NewClient(client)

	partitions := spec.Partitions
	if partitions <= 0 {
		partitions = 6
	}
	replication := spec.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}
	var configs map[string]*string
	if spec.RetentionMs != "" {
		retention := spec.RetentionMs
		configs = map[string]*string{"retention.ms": &retention}
	}

	resp, err := adm.CreateTopics(ctx, partitions, replication, configs, spec.Name)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", spec.Name, err)
	}
	if r, ok := resp[spec.Name]; ok && r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", spec.Name, r.Err)
	}
	return nil
}
