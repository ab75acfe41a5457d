package connection

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SessionName derives the gateway session/instance name for a tenant:
// "tenant_" plus the first 8 hex characters of the tenant UUID. Already
// paired sessions were registered under this exact name, so the
// derivation must never change.
func SessionName(tenantID string) (string, error) {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return "", fmt.Errorf("parse tenant id %q: %w", tenantID, err)
	}
	hex := strings.ReplaceAll(id.String(), "-", "")
	return "tenant_" + hex[:8], nil
}
