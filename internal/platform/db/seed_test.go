package db

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perftrack/internal/domain/cycles"
	"perftrack/internal/platform/memstore"
)

const orgYAML = `
users:
  - key: ada
    email: Ada@Example.com
    fullName: Ada Admin
    role: Admin
  - key: mia
    email: mia@example.com
    fullName: Mia Manager
    role: Manager
    manager: ada
  - key: eli
    email: eli@example.com
    fullName: Eli Employee
    role: Employee
    manager: mia
cycles:
  - name: 2026 H1
    startDate: 2026-01-01
    endDate: 2026-06-30
    evidenceMandatory: true
    active: true
`

func TestSeedIsIdempotent(t *testing.T) {
	org, err := ParseOrg(strings.NewReader(orgYAML))
	require.NoError(t, err)

	store := memstore.New()
	ctx := context.Background()

	first, err := Seed(ctx, store, store, org)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{UsersCreated: 3, CyclesCreated: 1}, first)

	second, err := Seed(ctx, store, store, org)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, second)

	eli, err := store.GetUserByEmail(ctx, "eli@example.com")
	require.NoError(t, err)
	mia, err := store.GetUserByEmail(ctx, "mia@example.com")
	require.NoError(t, err)
	assert.True(t, eli.ManagedBy(mia.ID))

	_, err = store.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err, "emails are stored lower-cased")

	active, err := store.ListCycles(ctx, cycles.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].EvidenceMandatory)
}

func TestParseOrgRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown role":    "users:\n  - key: a\n    email: a@x.io\n    role: HR\n",
		"unknown manager": "users:\n  - key: a\n    email: a@x.io\n    role: Employee\n    manager: ghost\n",
		"duplicate key":   "users:\n  - key: a\n    email: a@x.io\n    role: Admin\n  - key: a\n    email: b@x.io\n    role: Admin\n",
		"unknown field":   "users:\n  - key: a\n    email: a@x.io\n    role: Admin\n    password: hunter2\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOrg(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
