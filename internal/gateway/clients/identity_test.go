package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkazantseva/go-social-backend/pkg/middleware"

	"github.com/stretchr/testify/require"
)

func TestIdentityClient_IntrospectAccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/introspect/some-token", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":1000,"message":"success","result":{"active":true}}`))
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL, time.Second)

	valid, err := client.IntrospectAccess(context.Background(), "some-token")
	require.NoError(t, err)
	require.True(t, valid)
}

func TestIdentityClient_IntrospectRefresh_Invalid(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/introspect/refresh/some-token", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":1000,"message":"success","result":{"active":false}}`))
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL, time.Second)

	valid, err := client.IntrospectRefresh(context.Background(), "some-token")
	require.NoError(t, err)
	require.False(t, valid)
}

func TestIdentityClient_Refresh_OK(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh/old-token", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":1000,"message":"success","result":{"accessToken":"new-access","expiresAt":"2026-08-28T12:00:00Z"}}`))
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL, time.Second)

	token, err := client.Refresh(context.Background(), "old-token")
	require.NoError(t, err)
	require.Equal(t, "new-access", token)
}

func TestIdentityClient_Refresh_Rejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":1501,"message":"unauthorized"}`))
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL, time.Second)

	_, err := client.Refresh(context.Background(), "revoked-token")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestIdentityClient_Refresh_EmptyToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":1000,"message":"success","result":{"accessToken":"","expiresAt":"2026-08-28T12:00:00Z"}}`))
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL, time.Second)

	_, err := client.Refresh(context.Background(), "old-token")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestIdentityClient_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL, time.Second)

	_, err := client.IntrospectAccess(context.Background(), "some-token")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnauthorized)
}

func TestIdentityClient_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"code":1000,"message":"success","result":{"active":true}}`))
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL, 20*time.Millisecond)

	_, err := client.IntrospectAccess(context.Background(), "some-token")
	require.Error(t, err)
}

func TestIdentityClient_PropagatesRequestID(t *testing.T) {
	t.Parallel()

	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-Id")
		_, _ = w.Write([]byte(`{"code":1000,"message":"success","result":{"active":true}}`))
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL, time.Second)

	ctx := context.WithValue(context.Background(), middleware.CtxRequestID, "req-123")
	_, err := client.IntrospectAccess(ctx, "some-token")
	require.NoError(t, err)
	require.Equal(t, "req-123", gotID)
}

func TestIdentityClient_TokenIsPathEscaped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/introspect/a%2Fb", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"code":1000,"message":"success","result":{"active":false}}`))
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL, time.Second)

	_, err := client.IntrospectAccess(context.Background(), "a/b")
	require.NoError(t, err)
}
