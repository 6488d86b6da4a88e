package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/repository/repofake"
	"github.com/iliyamo/carpool-identity/internal/service"
)

func TestAuditLogger_RecordAndList(t *testing.T) {
	store := repofake.NewAudit()
	audit := service.NewAuditLogger(store, nop, 2)

	require.NoError(t, audit.Record(ctx, "a1", model.AuditCreate, "staff", service.ID("s1"), nil))
	require.NoError(t, audit.Record(ctx, "a1", model.AuditUpdate, "staff", service.ID("s1"), model.AuditDetail{"k": "v"}))
	require.NoError(t, audit.Record(ctx, "a1", model.AuditDelete, "staff", service.ID("s1"), nil))

	all := store.All()
	require.Len(t, all, 3)
	require.NotNil(t, all[0].Detail, "nil detail is stored as an empty object")

	page, err := audit.List(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, page, 2, "limit is clamped")
	require.Equal(t, model.AuditDelete, page[0].Action)
	require.Equal(t, model.AuditUpdate, page[1].Action)

	page, err = audit.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, model.AuditCreate, page[0].Action)
}

func TestAuditLogger_FailureIsSurfaced(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	store := repofake.NewAudit()
	store.Fail("Append", errors.New("disk full"))
	audit := service.NewAuditLogger(store, zap.New(core).Sugar(), 0)

	err := audit.Record(ctx, "a1", model.AuditDelete, "banner", service.ID("7"), nil)
	require.Error(t, err)

	entries := logs.FilterMessage("audit write failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "a1", fields["actor_id"])
	require.Equal(t, "delete", fields["action"])
	require.Equal(t, "banner", fields["resource_type"])
	require.Equal(t, "7", fields["resource_id"])
}

func TestAuditLogger_RejectsUnknownAction(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	store := repofake.NewAudit()
	audit := service.NewAuditLogger(store, zap.New(core).Sugar(), 0)

	require.Error(t, audit.Record(ctx, "a1", "deny", "staff", nil, nil))
	require.Empty(t, store.All())
	require.Equal(t, 1, logs.Len())
}

func TestAuditLogger_OrderIsReverseChronological(t *testing.T) {
	store := repofake.NewAudit()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{base.Add(2 * time.Minute), base, base.Add(time.Minute)} {
		e := &model.AuditEntry{ActorID: "a", Action: model.AuditView, ResourceType: "r", ResourceID: service.ID(string(rune('a' + i))), CreatedAt: at}
		require.NoError(t, store.Append(ctx, e))
	}
	page, err := service.NewAuditLogger(store, nop, 0).List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.True(t, page[0].CreatedAt.After(page[1].CreatedAt))
	require.True(t, page[1].CreatedAt.After(page[2].CreatedAt))
}
