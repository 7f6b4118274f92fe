package domain

import (
	"fmt"
	"time"
)

// WebhookAction is what a webhook asks the ingestor to do
type WebhookAction int

const (
	WebhookActionCreate WebhookAction = iota + 1
	WebhookActionUpdate
	WebhookActionDelete
	WebhookActionUninstall
)

func (a WebhookAction) String() string {
	switch a {
	case WebhookActionCreate:
		return "create"
	case WebhookActionUpdate:
		return "update"
	case WebhookActionDelete:
		return "delete"
	case WebhookActionUninstall:
		return "uninstall"
	}
	return "unknown"
}

// WebhookTopic is the closed set of webhook topics the ingestor accepts.
// The zero value is not a valid topic; obtain one from ParseWebhookTopic.
type WebhookTopic int

const (
	TopicOrderCreate WebhookTopic = iota + 1
	TopicOrderUpdate
	TopicOrderDelete
	TopicCustomerCreate
	TopicCustomerUpdate
	TopicCustomerDelete
	TopicProductCreate
	TopicProductUpdate
	TopicProductDelete
	TopicAppUninstalled
)

type topicInfo struct {
	wire     string
	resource ResourceType
	action   WebhookAction
}

// Wire names follow the remote platform, including its inconsistent
// "orders/updated" next to "customers/update".
var topicTable = map[WebhookTopic]topicInfo{
	TopicOrderCreate:    {"orders/create", ResourceOrders, WebhookActionCreate},
	TopicOrderUpdate:    {"orders/updated", ResourceOrders, WebhookActionUpdate},
	TopicOrderDelete:    {"orders/delete", ResourceOrders, WebhookActionDelete},
	TopicCustomerCreate: {"customers/create", ResourceCustomers, WebhookActionCreate},
	TopicCustomerUpdate: {"customers/update", ResourceCustomers, WebhookActionUpdate},
	TopicCustomerDelete: {"customers/delete", ResourceCustomers, WebhookActionDelete},
	TopicProductCreate:  {"products/create", ResourceProducts, WebhookActionCreate},
	TopicProductUpdate:  {"products/update", ResourceProducts, WebhookActionUpdate},
	TopicProductDelete:  {"products/delete", ResourceProducts, WebhookActionDelete},
	TopicAppUninstalled: {"app/uninstalled", "", WebhookActionUninstall},
}

var topicsByWire = func() map[string]WebhookTopic {
	m := make(map[string]WebhookTopic, len(topicTable))
	for topic, info := range topicTable {
		m[info.wire] = topic
	}
	return m
}()

// AllWebhookTopics returns every topic in declaration order
func AllWebhookTopics() []WebhookTopic {
	topics := make([]WebhookTopic, 0, len(topicTable))
	for t := TopicOrderCreate; t <= TopicAppUninstalled; t++ {
		topics = append(topics, t)
	}
	return topics
}

// ParseWebhookTopic converts a wire topic into the closed variant
func ParseWebhookTopic(s string) (WebhookTopic, error) {
	topic, ok := topicsByWire[s]
	if !ok {
		return 0, NewValidationError("topic", fmt.Sprintf("unsupported webhook topic %q", s))
	}
	return topic, nil
}

func (t WebhookTopic) String() string {
	if info, ok := topicTable[t]; ok {
		return info.wire
	}
	return fmt.Sprintf("WebhookTopic(%d)", int(t))
}

// Resource is the synced resource the topic mutates; empty for app topics
func (t WebhookTopic) Resource() ResourceType {
	return topicTable[t].resource
}

// Action is the mutation the topic requests
func (t WebhookTopic) Action() WebhookAction {
	return topicTable[t].action
}

// IsValid reports whether t is one of the declared topics
func (t WebhookTopic) IsValid() bool {
	_, ok := topicTable[t]
	return ok
}

// Outcome of processing a single webhook delivery
const (
	WebhookOutcomeProcessed = "processed"
	WebhookOutcomeDuplicate = "duplicate"
	WebhookOutcomeFailed    = "failed"
)

// WebhookEvent is one received webhook delivery
type WebhookEvent struct {
	ID         string    `json:"id"`
	DeliveryID string    `json:"delivery_id"`
	TenantID   string    `json:"tenant_id"`
	StoreID    string    `json:"store_id"`
	Topic      string    `json:"topic"`
	Shop       string    `json:"shop"`
	Payload    []byte    `json:"payload"`
	Verified   bool      `json:"verified"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
