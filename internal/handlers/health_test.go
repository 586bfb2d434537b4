package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vente/apiserver/internal/logging"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	tests := map[string]struct {
		db   Pinger
		want string
	}{
		"ok":             {db: pingerFunc(func(context.Context) error { return nil }), want: "ok"},
		"not configured": {db: nil, want: "not configured"},
		"ping failure": {
			db: pingerFunc(func(context.Context) error {
				return errors.New(`dial tcp db.internal:5432: password authentication failed for user "vente"`)
			}),
			want: "error",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			logger, hook := logtest.NewNullLogger()
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req = req.WithContext(logging.WithLogger(req.Context(), logger))
			rec := httptest.NewRecorder()

			Health(tc.db).ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"status":"healthy","api_version":"`+APIVersion+`","db_connection":"`+tc.want+`"}`, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "vente")
			if tc.want == "error" {
				require.NotNil(t, hook.LastEntry())
				assert.Equal(t, "database ping failed", hook.LastEntry().Message)
			}
		})
	}
}
