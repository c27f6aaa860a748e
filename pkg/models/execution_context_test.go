package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_AllocatesNamedNamespace(t *testing.T) {
	run := &ExecutionContext{RunID: "run-1"}

	run.Set("http", "last_status", 200)
	run.Set("auth", "isAuthenticated", true)

	status, ok := run.Lookup("http.last_status")
	require.True(t, ok)
	assert.Equal(t, 200, status)

	authed, ok := run.Lookup("auth.isAuthenticated")
	require.True(t, ok)
	assert.Equal(t, true, authed)

	assert.Empty(t, run.Custom, "named namespaces must not leak into custom")
}

func TestSet_UnknownNamespaceLandsInCustom(t *testing.T) {
	run := &ExecutionContext{}

	run.Set("session", "token", "t-1")

	value, ok := run.Lookup("session.token")
	require.True(t, ok)
	assert.Equal(t, "t-1", value)
	assert.Equal(t, "t-1", run.Custom["token"])
}

func TestExecutionContext_WireHopKeepsNamespacesWritable(t *testing.T) {
	origin := NewExecutionContext("run-1", "app-1", "user-1")
	origin.Set("trigger", "hook_id", "hk-1")

	encoded, err := json.Marshal(origin)
	require.NoError(t, err)

	var arrived ExecutionContext
	require.NoError(t, json.Unmarshal(encoded, &arrived))

	// Empty namespaces are dropped on the wire; after decoding every
	// map must be allocated again.
	arrived.Auth["user"] = map[string]any{"id": "user-1"}
	arrived.HTTP["last_status"] = 200
	arrived.Custom["summary"] = "short"
	arrived.DB["last_insert_id"] = int64(7)
	arrived.Form["email"] = "ana@example.com"
	arrived.Steps["n1"] = map[string]any{"count": 1}

	hook, ok := arrived.Lookup("trigger.hook_id")
	require.True(t, ok)
	assert.Equal(t, "hk-1", hook)

	userID, ok := arrived.Lookup("auth.user.id")
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)
}

func TestExtend_AllocatesSparseReceiver(t *testing.T) {
	src := NewExecutionContext("run-1", "app-1", "user-1")
	src.Set("db", "last_insert_id", int64(3))

	dst := &ExecutionContext{RunID: "run-1"}
	dst.Extend(src)

	id, ok := dst.Lookup("db.last_insert_id")
	require.True(t, ok)
	assert.Equal(t, int64(3), id)
}
