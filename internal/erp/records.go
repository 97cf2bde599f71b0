package erp

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"finsync/internal"
	"finsync/internal/util"
)

type scrollPayload struct {
	Records  []map[string]any `json:"records"`
	ScrollID *string          `json:"scrollId"`
	Total    *int             `json:"total"`
}

// FetchReferences pulls every master record of one kind for the configured
// scope, following the scroll cursor until exhausted.
func (c *Client) FetchReferences(ctx context.Context, kind internal.RefKind) ([]internal.ReferenceEntity, error) {
	all := make([]internal.ReferenceEntity, 0)
	seen := map[string]struct{}{}
	var scrollID string

	for {
		query := map[string]string{
			"kind":    string(kind),
			"sandbox": strconv.FormatBool(c.cfg.ErpSandbox),
		}
		if scrollID != "" {
			query["scrollId"] = scrollID
		}

		body, err := c.getJSON(ctx, "record/scroll", query)
		if err != nil {
			return nil, err
		}

		var payload scrollPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}

		for _, raw := range payload.Records {
			entity, err := toReferenceEntity(raw, kind, c.cfg.ErpSandbox)
			if err != nil {
				continue
			}
			all = append(all, entity)
		}

		if payload.ScrollID == nil || *payload.ScrollID == "" || len(payload.Records) == 0 {
			break
		}
		if _, ok := seen[*payload.ScrollID]; ok {
			break
		}
		seen[*payload.ScrollID] = struct{}{}
		scrollID = *payload.ScrollID
	}

	return all, nil
}

func toReferenceEntity(raw map[string]any, kind internal.RefKind, sandbox bool) (internal.ReferenceEntity, error) {
	name, _ := raw["displayName"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return internal.ReferenceEntity{}, errors.New("empty displayName")
	}

	id := toString(raw["id"])
	if id == "" {
		return internal.ReferenceEntity{}, errors.New("missing id")
	}

	rawJSON, _ := json.Marshal(raw)
	entity := internal.ReferenceEntity{
		ExternalID:  id,
		Kind:        kind,
		DisplayName: name,
		Sandbox:     sandbox,
		RawJSON:     string(rawJSON),
	}
	entity.Code = toStringPtr(raw["code"])
	entity.ItemType = toStringPtr(raw["itemType"])
	entity.Inactive = toBool(raw["isInactive"])
	entity.CurrencyCodes = toStringSlice(raw["currencyCodes"])

	return entity, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func toStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return util.StringPtr(s)
}

func toBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
