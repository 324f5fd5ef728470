package gateway

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Metadata keys attached to every intent at creation time. A webhook
// delivered with only the intent id can be fully attributed from these
// without a database join.
const (
	metaPlanID            = "plan_id"
	metaPlanTitle         = "plan_title"
	metaClientID          = "client_id"
	metaItemIDs           = "service_item_ids"
	metaServiceCategories = "service_categories"
	metaDescriptions      = "descriptions"
)

// IntentMetadata is the tagged attribution blob carried on a payment intent.
// It is validated at the gateway boundary because webhook ingestion trusts it.
type IntentMetadata struct {
	PlanID            uuid.UUID
	PlanTitle         string
	ClientID          uuid.UUID
	ItemIDs           []uuid.UUID
	ServiceCategories []string
	Descriptions      []string
}

// Validate checks the fields webhook processing depends on.
func (m *IntentMetadata) Validate() error {
	if m.PlanID == uuid.Nil {
		return fmt.Errorf("intent metadata: plan id is required")
	}
	if m.ClientID == uuid.Nil {
		return fmt.Errorf("intent metadata: client id is required")
	}
	if len(m.ItemIDs) == 0 {
		return fmt.Errorf("intent metadata: at least one service item id is required")
	}
	return nil
}

// ToMap flattens the metadata into the gateway's string-map form.
func (m *IntentMetadata) ToMap() map[string]string {
	ids := make([]string, len(m.ItemIDs))
	for i, id := range m.ItemIDs {
		ids[i] = id.String()
	}
	return map[string]string{
		metaPlanID:            m.PlanID.String(),
		metaPlanTitle:         m.PlanTitle,
		metaClientID:          m.ClientID.String(),
		metaItemIDs:           strings.Join(ids, ","),
		metaServiceCategories: strings.Join(m.ServiceCategories, ","),
		metaDescriptions:      strings.Join(m.Descriptions, "|"),
	}
}

// ParseIntentMetadata rebuilds the tagged structure from a gateway metadata
// map and validates it. Used on webhook ingestion and status retrieval.
func ParseIntentMetadata(meta map[string]string) (*IntentMetadata, error) {
	planID, err := uuid.Parse(meta[metaPlanID])
	if err != nil {
		return nil, fmt.Errorf("intent metadata: invalid plan id %q: %w", meta[metaPlanID], err)
	}
	clientID, err := uuid.Parse(meta[metaClientID])
	if err != nil {
		return nil, fmt.Errorf("intent metadata: invalid client id %q: %w", meta[metaClientID], err)
	}

	var itemIDs []uuid.UUID
	for _, raw := range strings.Split(meta[metaItemIDs], ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("intent metadata: invalid service item id %q: %w", raw, err)
		}
		itemIDs = append(itemIDs, id)
	}

	m := &IntentMetadata{
		PlanID:    planID,
		PlanTitle: meta[metaPlanTitle],
		ClientID:  clientID,
		ItemIDs:   itemIDs,
	}
	if cats := meta[metaServiceCategories]; cats != "" {
		m.ServiceCategories = strings.Split(cats, ",")
	}
	if descs := meta[metaDescriptions]; descs != "" {
		m.Descriptions = strings.Split(descs, "|")
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
