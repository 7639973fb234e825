package admin

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	apierrors "github.com/objstore-policy-mgmt/internal/errors"
	"github.com/objstore-policy-mgmt/internal/policy"
)

const (
	testUsername = "admin"
	testPasswd   = "secret"
	testToken    = "tok-12345"
)

const testPolicyJSON = `{
    "Version": "2008-10-17",
    "Id": "My Policy",
    "Statement": [
        {
            "Sid": "s1",
            "Effect": "Allow",
            "Principal": {"user": ["alice"], "group": []},
            "Action": ["ListBucket"],
            "Resource": "*"
        }
    ]
}`

// testServer serves the token-issuance path and records every dispatched
// request for call-count assertions.
type testServer struct {
	*httptest.Server
	requests atomic.Int64
	handler  http.HandlerFunc
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *testServer {
	t.Helper()
	ts := &testServer{handler: handler}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.requests.Add(1)

		if r.URL.Path == "/.TOKEN/" {
			if r.Method != http.MethodPost {
				t.Errorf("token request method = %s, want POST", r.Method)
			}
			user, passwd, ok := r.BasicAuth()
			if !ok || user != testUsername || passwd != testPasswd {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "token", Value: testToken})
			w.WriteHeader(http.StatusOK)
			return
		}

		if ts.handler != nil {
			ts.handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func authedClient(t *testing.T, ts *testServer) *Client {
	t.Helper()
	client, err := New(context.Background(), ts.URL+"/", testUsername, testPasswd)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewObtainsToken(t *testing.T) {
	ts := newTestServer(t, nil)
	client := authedClient(t, ts)

	if client.Token() != testToken {
		t.Errorf("Token() = %q, want %q", client.Token(), testToken)
	}
	if got := ts.requests.Load(); got != 1 {
		t.Errorf("request count = %d, want 1", got)
	}
}

func TestNewRejectedCredentials(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := New(context.Background(), ts.URL+"/", testUsername, "wrong")
	if err == nil {
		t.Fatal("New() error = nil, want AuthenticationError")
	}

	var authErr *apierrors.AuthenticationError
	if !stderrors.As(err, &authErr) {
		t.Fatalf("error type = %T, want *AuthenticationError", err)
	}
	if authErr.Reason.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want %d", authErr.Reason.StatusCode, http.StatusUnauthorized)
	}

	// An authentication failure is also a request failure
	var reqErr *apierrors.RequestError
	if !stderrors.As(err, &reqErr) {
		t.Error("AuthenticationError does not unwrap to RequestError")
	}
}

func TestNewMissingTokenCookie(t *testing.T) {
	// Success status but no token cookie in the response
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := New(context.Background(), server.URL+"/", testUsername, testPasswd)
	if err == nil {
		t.Fatal("New() error = nil, want AuthenticationError")
	}

	var authErr *apierrors.AuthenticationError
	if !stderrors.As(err, &authErr) {
		t.Fatalf("error type = %T, want *AuthenticationError", err)
	}
	if authErr.Reason.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", authErr.Reason.StatusCode, http.StatusOK)
	}
}

func TestNewEmptyBaseURI(t *testing.T) {
	_, err := New(context.Background(), "", testUsername, testPasswd)
	if err == nil {
		t.Fatal("New() error = nil, want ConfigError")
	}
	if _, ok := err.(*apierrors.ConfigError); !ok {
		t.Errorf("error type = %T, want *ConfigError", err)
	}
}

func TestGetDomainPolicy(t *testing.T) {
	const wantPath = "/_admin/manage/tenants/t1/domains/d1/etc/policy.json"

	var gotPath, gotCookie string
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if ck, err := r.Cookie("token"); err == nil {
			gotCookie = ck.Value
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testPolicyJSON))
	})

	client := authedClient(t, ts)
	p, err := client.GetDomainPolicy(context.Background(), "t1", "d1")
	if err != nil {
		t.Fatalf("GetDomainPolicy() error = %v", err)
	}

	if gotPath != wantPath {
		t.Errorf("request path = %q, want %q", gotPath, wantPath)
	}
	if gotCookie != testToken {
		t.Errorf("token cookie = %q, want %q", gotCookie, testToken)
	}
	if got := ts.requests.Load(); got != 2 {
		t.Errorf("request count = %d, want 2 (auth + one GET)", got)
	}

	if p.Id != "My Policy" {
		t.Errorf("Id = %q, want %q", p.Id, "My Policy")
	}
	if len(p.Statement) != 1 || p.Statement[0].Sid != "s1" {
		t.Errorf("Statement = %v, want single statement with Sid s1", p.Statement)
	}
}

func TestPutDomainPolicy(t *testing.T) {
	const wantPath = "/_admin/manage/tenants/t1/domains/d1/etc/policy.json"

	var gotMethod, gotPath, gotContentType string
	var gotBody *policy.Policy
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")

		buf, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body: %v", err)
		}
		gotBody, err = policy.ParseString(string(buf))
		if err != nil {
			t.Errorf("request body is not a valid policy: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	client := authedClient(t, ts)
	p := &policy.Policy{
		Version:   policy.Version,
		Id:        "My Policy",
		Statement: []policy.Statement{{Sid: "s1", Effect: policy.EffectAllow, Resource: "*"}},
	}
	if err := client.PutDomainPolicy(context.Background(), "t1", "d1", p); err != nil {
		t.Fatalf("PutDomainPolicy() error = %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != wantPath {
		t.Errorf("request path = %q, want %q", gotPath, wantPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotBody == nil || gotBody.Id != "My Policy" {
		t.Errorf("uploaded policy = %v, want Id %q", gotBody, "My Policy")
	}
}

func TestScopePreconditions(t *testing.T) {
	ts := newTestServer(t, nil)
	client := authedClient(t, ts)
	authRequests := ts.requests.Load()

	tests := []struct {
		name   string
		tenant string
		domain string
	}{
		{name: "empty tenant", tenant: "", domain: "d1"},
		{name: "empty domain", tenant: "t1", domain: ""},
		{name: "both empty", tenant: "", domain: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.GetDomainPolicy(context.Background(), tt.tenant, tt.domain)
			assertUndispatchedRequestError(t, err)

			err = client.PutDomainPolicy(context.Background(), tt.tenant, tt.domain, policy.New())
			assertUndispatchedRequestError(t, err)
		})
	}

	if got := ts.requests.Load(); got != authRequests {
		t.Errorf("request count = %d, want %d (no call dispatched)", got, authRequests)
	}
}

func assertUndispatchedRequestError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("error = nil, want RequestError")
	}
	reqErr, ok := err.(*apierrors.RequestError)
	if !ok {
		t.Fatalf("error type = %T, want *RequestError", err)
	}
	if reqErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for undispatched call", reqErr.StatusCode)
	}
}

func TestGetDomainItemErrorStatus(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such domain", http.StatusNotFound)
	})

	client := authedClient(t, ts)
	_, err := client.GetDomainEtc(context.Background(), "t1", "missing")
	if err == nil {
		t.Fatal("GetDomainEtc() error = nil, want RequestError")
	}

	var reqErr *apierrors.RequestError
	if !stderrors.As(err, &reqErr) {
		t.Fatalf("error type = %T, want *RequestError", err)
	}
	if reqErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", reqErr.StatusCode, http.StatusNotFound)
	}

	// A plain request failure is not an authentication failure
	var authErr *apierrors.AuthenticationError
	if stderrors.As(err, &authErr) {
		t.Error("RequestError unexpectedly matches AuthenticationError")
	}
}

func TestGetDomainEtc(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_admin/manage/tenants/t1/domains/d1/etc" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name": "d1", "owner": "alice"}`))
	})

	client := authedClient(t, ts)
	doc, err := client.GetDomainEtc(context.Background(), "t1", "d1")
	if err != nil {
		t.Fatalf("GetDomainEtc() error = %v", err)
	}

	m, ok := doc.(map[string]any)
	if !ok {
		t.Fatalf("document type = %T, want map", doc)
	}
	if m["name"] != "d1" {
		t.Errorf("name = %v, want d1", m["name"])
	}
}

func TestGetDomainPolicyNotAnObject(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["not", "an", "object"]`))
	})

	client := authedClient(t, ts)
	_, err := client.GetDomainPolicy(context.Background(), "t1", "d1")
	if err == nil {
		t.Fatal("GetDomainPolicy() error = nil, want ParseError")
	}
	var parseErr *apierrors.ParseError
	if !stderrors.As(err, &parseErr) {
		t.Errorf("error type = %T, want *ParseError", err)
	}
}
