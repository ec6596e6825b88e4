package tenant_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantgate/pkg/logger"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

type stubHandle struct {
	name string
}

func (*stubHandle) Close() {}

func scopeFor(slug string) tenant.Scope {
	t := &tenant.Tenant{ID: uuid.New(), Slug: slug, Status: tenant.StatusActive}
	o := &tenant.Org{ID: uuid.New(), TenantID: t.ID, Slug: "main", SchemaName: "org_" + slug}
	return tenant.Scope{Tenant: t, Org: o, Schema: o.SchemaName, Handle: &stubHandle{name: slug}}
}

func TestRunInScope(t *testing.T) {
	t.Parallel()

	t.Run("visible only inside the window", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		_, ok := tenant.FromContext(ctx)
		assert.False(t, ok)

		var captured context.Context
		s := scopeFor("acme")
		err := tenant.RunInScope(ctx, s, func(ctx context.Context) error {
			got, ok := tenant.FromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, s, got)

			derived, cancel := context.WithCancel(ctx)
			defer cancel()
			_, ok = tenant.FromContext(derived)
			assert.True(t, ok)

			captured = derived
			return nil
		})
		require.NoError(t, err)

		_, ok = tenant.FromContext(captured)
		assert.False(t, ok)
		_, err = tenant.HandleFromContext(captured)
		assert.ErrorIs(t, err, tenant.ErrNoScope)
	})

	t.Run("returns fn error and tears down", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		var captured context.Context
		err := tenant.RunInScope(context.Background(), scopeFor("acme"), func(ctx context.Context) error {
			captured = ctx
			return boom
		})
		assert.ErrorIs(t, err, boom)
		_, ok := tenant.FromContext(captured)
		assert.False(t, ok)
	})

	t.Run("tears down on panic", func(t *testing.T) {
		t.Parallel()

		var captured context.Context
		assert.Panics(t, func() {
			_ = tenant.RunInScope(context.Background(), scopeFor("acme"), func(ctx context.Context) error {
				captured = ctx
				panic("handler crashed")
			})
		})
		_, ok := tenant.FromContext(captured)
		assert.False(t, ok)
	})

	t.Run("concurrent scopes are isolated", func(t *testing.T) {
		t.Parallel()

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				slug := uuid.NewString()
				_ = tenant.RunInScope(context.Background(), scopeFor(slug), func(ctx context.Context) error {
					got := tenant.MustFromContext(ctx)
					assert.Equal(t, slug, got.Tenant.Slug)
					h, err := tenant.HandleFromContext(ctx)
					assert.NoError(t, err)
					assert.Equal(t, slug, h.(*stubHandle).name)
					return nil
				})
			}()
		}
		wg.Wait()
	})
}

func TestMustFromContext_Panics(t *testing.T) {
	t.Parallel()

	assert.PanicsWithValue(t, tenant.ErrNoScope, func() {
		tenant.MustFromContext(context.Background())
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithContextExtractors(tenant.LoggerExtractor()),
	)

	s := scopeFor("acme")
	_ = tenant.RunInScope(context.Background(), s, func(ctx context.Context) error {
		log.InfoContext(ctx, "inside")
		return nil
	})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	group, ok := rec["tenant"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, s.Tenant.ID.String(), group["id"])
	assert.Equal(t, "acme", group["slug"])
	assert.Equal(t, s.Org.ID.String(), group["org_id"])

	_, ok = tenant.LoggerExtractor()(context.Background())
	assert.False(t, ok)
}
