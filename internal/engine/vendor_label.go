package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-sort/internal/common"
)

// vendorLabelKeys are checked in priority order.
var vendorLabelKeys = []string{"sector_code", "category_id", "merchant_branch_code"}

// ExtractVendorLabel returns the first non-empty vendor hint in an enrichment
// payload. An empty or null payload has no label. A payload that is not a
// JSON object is malformed.
func ExtractVendorLabel(enrichment json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(enrichment)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return "", fmt.Errorf("%w: enrichment is not a JSON object: %w", common.ErrMalformedTransaction, err)
	}

	for _, key := range vendorLabelKeys {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		if label := labelText(raw); label != "" {
			return label, nil
		}
	}
	return "", nil
}

// labelText renders strings trimmed and numbers in their JSON text form.
// Other JSON types carry no label.
func labelText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
