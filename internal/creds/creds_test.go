package creds

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCredsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStatic(t *testing.T) {
	username, passwd, err := Static{Username: "alice", Passwd: "secret"}.Credentials()
	if err != nil {
		t.Fatalf("Credentials() error = %v", err)
	}
	if username != "alice" || passwd != "secret" {
		t.Errorf("Credentials() = %q, %q", username, passwd)
	}
}

func TestFile(t *testing.T) {
	path := writeCredsFile(t, `{"username": "alice", "passwd": "secret"}`)

	username, passwd, err := File(path).Credentials()
	if err != nil {
		t.Fatalf("Credentials() error = %v", err)
	}
	if username != "alice" || passwd != "secret" {
		t.Errorf("Credentials() = %q, %q", username, passwd)
	}
}

func TestFileExpandsEnvInPath(t *testing.T) {
	path := writeCredsFile(t, `{"username": "alice", "passwd": "secret"}`)
	t.Setenv("OSPOLICY_TEST_CREDS_DIR", filepath.Dir(path))

	username, _, err := File("${OSPOLICY_TEST_CREDS_DIR}/creds.json").Credentials()
	if err != nil {
		t.Fatalf("Credentials() error = %v", err)
	}
	if username != "alice" {
		t.Errorf("username = %q, want alice", username)
	}
}

func TestChain(t *testing.T) {
	withPasswd := writeCredsFile(t, `{"username": "alice", "passwd": "secret"}`)
	withoutPasswd := writeCredsFile(t, `{"username": "bob"}`)

	tests := []struct {
		name         string
		chain        Chain
		wantUsername string
		wantPasswd   string
		wantErr      bool
	}{
		{
			name:         "file supplies both",
			chain:        Chain{File(withPasswd)},
			wantUsername: "alice",
			wantPasswd:   "secret",
		},
		{
			name:         "later provider fills password",
			chain:        Chain{File(withoutPasswd), Static{Passwd: "fallback"}},
			wantUsername: "bob",
			wantPasswd:   "fallback",
		},
		{
			name:         "first non-empty value wins",
			chain:        Chain{Static{Username: "carol", Passwd: "pw1"}, Static{Username: "dave", Passwd: "pw2"}},
			wantUsername: "carol",
			wantPasswd:   "pw1",
		},
		{
			name:    "no username",
			chain:   Chain{Static{Passwd: "secret"}},
			wantErr: true,
		},
		{
			name:    "no password",
			chain:   Chain{Static{Username: "alice"}},
			wantErr: true,
		},
		{
			name:    "empty chain",
			chain:   Chain{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			username, passwd, err := tt.chain.Credentials()
			if tt.wantErr {
				if err == nil {
					t.Error("Credentials() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Credentials() error = %v", err)
			}
			if username != tt.wantUsername {
				t.Errorf("username = %q, want %q", username, tt.wantUsername)
			}
			if passwd != tt.wantPasswd {
				t.Errorf("passwd = %q, want %q", passwd, tt.wantPasswd)
			}
		})
	}
}
