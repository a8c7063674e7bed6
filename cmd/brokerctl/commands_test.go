package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/stretchr/testify/require"
)

func runBrokerctl(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func useTempDatabase(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", config.DriverSQLite)
	t.Setenv("DB_DSN", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("DB_MAX_OPEN_CONNS", "1")
	t.Setenv("PUBSUB_TOPIC", "")

	prev := config.GetDB()
	t.Cleanup(func() {
		if db := config.GetDB(); db != nil && db != prev {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		config.SetDB(prev)
	})
}

func TestProbe_ReportsGenerations(t *testing.T) {
	useTempDatabase(t)
	runBrokerctl(t, "migrate")

	out := runBrokerctl(t, "probe", "--json")
	var rows []struct {
		Table      string `json:"table"`
		Generation string `json:"generation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)

	got := map[string]string{}
	for _, r := range rows {
		got[r.Table] = r.Generation
	}
	for _, table := range []string{"escrow_people", "escrow_checklists", "escrow_timeline", "escrow_financials", "escrow_documents"} {
		if got[table] != "current" {
			t.Fatalf("%s: generation %q, want current (all: %v)", table, got[table], got)
		}
	}

	table := runBrokerctl(t, "probe")
	if !strings.Contains(table, "GENERATION") || !strings.Contains(table, "escrow_timeline") {
		t.Fatalf("unexpected table output:\n%s", table)
	}
}

func TestSeedAndBackfill(t *testing.T) {
	useTempDatabase(t)

	out := runBrokerctl(t, "seed")
	if strings.Count(out, "created ESC-") != 3 {
		t.Fatalf("expected 3 seeded escrows:\n%s", out)
	}
	out = runBrokerctl(t, "seed")
	if !strings.Contains(out, "nothing to seed") {
		t.Fatalf("expected rerun to skip:\n%s", out)
	}

	out = runBrokerctl(t, "backfill-checklists")
	if !strings.Contains(out, "seeded 0 checklist(s)") {
		t.Fatalf("seeded escrows already carry checklists:\n%s", out)
	}
}
