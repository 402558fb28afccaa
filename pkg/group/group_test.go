package group_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/dcnet/pkg/group"
	"github.com/luxfi/dcnet/pkg/party"
)

func TestNewGroupRejectsEmptyRoster(t *testing.T) {
	_, err := group.NewGroup("test", "pw", nil)
	require.Error(t, err)
}

func TestNewGroupRejectsDuplicateName(t *testing.T) {
	_, err := group.NewGroup("test", "pw", []*group.Participant{
		{Name: "Alice"},
		{Name: "Alice"},
	})
	require.Error(t, err)
}

func TestGroupOtherMembersPreservesRosterOrder(t *testing.T) {
	g, err := group.NewGroup("test", "pw", []*group.Participant{
		{Name: "Alice"}, {Name: "Bob"}, {Name: "Carol"},
	})
	require.NoError(t, err)
	require.Equal(t, party.IDSlice{"Bob", "Carol"}, g.OtherMembers("Alice"))
	require.Equal(t, 3, g.Size())
}

func TestLoadGroupsResolvesKeyPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := []map[string]any{
		{
			"name":     "test",
			"password": "password",
			"key_dir":  filepath.Join(dir, "keys"),
			"roster":   []string{"Alice", "Bob"},
		},
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "groups.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	groups, err := group.LoadGroups(path)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	require.Equal(t, "test", g.Name)
	alice, ok := g.Participant("Alice")
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "keys", "alice_public.pem"), alice.PublicKeyPath)
}

func TestPrivateKeyPathLowercasesName(t *testing.T) {
	require.Equal(t, filepath.Join("keys", "alice_private.pem"), group.PrivateKeyPath("keys", "Alice"))
}

func TestReferenceGroups(t *testing.T) {
	groups := group.Reference(".")
	require.Len(t, groups, 3)
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	require.ElementsMatch(t, []string{"test", "demo", "big"}, names)
}
