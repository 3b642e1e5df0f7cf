package postgres

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_CompressRoundTrip(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	large, err := json.Marshal(map[string]string{"notes": strings.Repeat("amoxicillin ", 2000)})
	require.NoError(t, err)

	entry := AuditEntry{Changes: large}
	svc.compress(&entry)

	assert.Equal(t, CompressionZstd, entry.CompressionAlgo)
	assert.Nil(t, entry.Changes)
	assert.Less(t, len(entry.ChangesCompressed), len(large))

	require.NoError(t, svc.decompress(&entry))
	assert.JSONEq(t, string(large), string(entry.Changes))
}

func TestAuditService_SmallChangesStayPlain(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	entry := AuditEntry{Changes: json.RawMessage(`{"name":"Antibiotics"}`)}
	svc.compress(&entry)

	if entry.CompressionAlgo != CompressionNone {
		t.Errorf("algo = %s, want none", entry.CompressionAlgo)
	}
	if entry.ChangesCompressed != nil {
		t.Error("small change set should not be compressed")
	}
}
