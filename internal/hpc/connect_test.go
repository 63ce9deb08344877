package hpc

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tvbhpc/pkg/unicore"
)

func TestConnect(t *testing.T) {
	sites := map[string]string{"JUSUF": "https://jusuf/rest/core"}

	tests := []struct {
		name      string
		site      string
		resolver  *fakeResolver
		dialErr   error
		wantErr   error
		wantDials int
		wantOut   string
	}{
		{
			name:     "site missing from registry",
			site:     "GHOST-SITE",
			resolver: &fakeResolver{sites: sites},
			wantErr:  ErrSiteUnavailable,
			wantOut:  "Site GHOST-SITE seems to be down for the moment.",
		},
		{
			name:     "registry unreachable",
			site:     "JUSUF",
			resolver: &fakeResolver{err: errors.New("connection refused")},
			wantErr:  ErrSiteUnavailable,
			wantOut:  "seems to be down",
		},
		{
			name:      "credentials rejected",
			site:      "JUSUF",
			resolver:  &fakeResolver{sites: sites},
			dialErr:   &unicore.AuthenticationError{URL: sites["JUSUF"], Reason: "anonymous role"},
			wantErr:   ErrAuthenticationFailed,
			wantDials: 1,
			wantOut:   "Authentication to JUSUF failed",
		},
		{
			name:      "http error while creating client",
			site:      "JUSUF",
			resolver:  &fakeResolver{sites: sites},
			dialErr:   &unicore.APIError{StatusCode: 500, Method: "GET", URL: sites["JUSUF"]},
			wantErr:   ErrAuthenticationFailed,
			wantDials: 1,
			wantOut:   "Authentication to JUSUF failed",
		},
		{
			name:      "success",
			site:      "JUSUF",
			resolver:  &fakeResolver{sites: sites},
			wantDials: 1,
			wantOut:   "Authenticated to JUSUF with success.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			d := &recordingDialer{client: &fakeClient{}, err: tt.dialErr}
			c := NewConnector(tt.resolver, d.dial, &out, nil)

			client, err := c.Connect(context.Background(), tt.site)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Connect() error = %v, want %v", err, tt.wantErr)
				}
				if client != nil {
					t.Error("Connect() returned a client on failure")
				}
			} else if err != nil || client == nil {
				t.Fatalf("Connect() = %v, %v", client, err)
			}
			if len(d.calls) != tt.wantDials {
				t.Errorf("dial calls = %d, want %d", len(d.calls), tt.wantDials)
			}
			if !contains(&out, tt.wantOut) {
				t.Errorf("output %q does not contain %q", out.String(), tt.wantOut)
			}
		})
	}
}

func TestTokenProviders(t *testing.T) {
	t.Setenv("TEST_TVB_TOKEN", "  abc  ")
	if tok, err := EnvToken("TEST_TVB_TOKEN").Token(); err != nil || tok != "abc" {
		t.Errorf("EnvToken = %q, %v", tok, err)
	}
	t.Setenv("TEST_TVB_EMPTY", "")
	if _, err := EnvToken("TEST_TVB_EMPTY").Token(); err == nil {
		t.Error("EnvToken with empty variable should fail")
	}

	path := filepath.Join(t.TempDir(), "token")
	os.WriteFile(path, []byte("xyz\n"), 0600)
	if tok, err := FileToken(path).Token(); err != nil || tok != "xyz" {
		t.Errorf("FileToken = %q, %v", tok, err)
	}
	if _, err := FileToken(path + ".missing").Token(); err == nil {
		t.Error("FileToken with missing file should fail")
	}

	if tok, _ := StaticToken("s").Token(); tok != "s" {
		t.Errorf("StaticToken = %q", tok)
	}
}

func TestNewUnicoreConnector_NoToken(t *testing.T) {
	t.Setenv("TEST_TVB_EMPTY", "")
	_, err := NewUnicoreConnector(EnvToken("TEST_TVB_EMPTY"), unicore.DefaultRegistryURL, 0, &bytes.Buffer{}, nil)
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("error = %v, want ErrAuthenticationFailed", err)
	}
}

func TestFindHomeStorage(t *testing.T) {
	var storages []Storage
	for i := 0; i < 11; i++ {
		storages = append(storages, newFakeStorage("https://site/rest/core/storages/PROJECT"+string(rune('A'+i))))
	}
	storages = append(storages, newFakeStorage("https://site/rest/core/storages/HOME"))

	client := &fakeClient{storages: storages}
	home, err := FindHomeStorage(context.Background(), client, "HOME")
	if err != nil {
		t.Fatalf("FindHomeStorage() error = %v", err)
	}
	if home.ResourceURL() != "https://site/rest/core/storages/HOME" {
		t.Errorf("found %s", home.ResourceURL())
	}
	if len(client.offsets) != 2 || client.offsets[1] != StoragePageSize {
		t.Errorf("offsets = %v, want [0 10]", client.offsets)
	}

	client = &fakeClient{storages: storages[:11]}
	if _, err := FindHomeStorage(context.Background(), client, "HOME"); !errors.Is(err, ErrHomeStorageNotFound) {
		t.Errorf("error = %v, want ErrHomeStorageNotFound", err)
	}
	if len(client.offsets) != 3 {
		t.Errorf("offsets = %v, want listing until an empty page", client.offsets)
	}

	client = &fakeClient{storagesErr: errors.New("boom")}
	if _, err := FindHomeStorage(context.Background(), client, "HOME"); err == nil || errors.Is(err, ErrHomeStorageNotFound) {
		t.Errorf("error = %v, want listing error", err)
	}
}

func TestFormatSubmissionTime(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-03-01T10:15:42+0100", "03.01.2024, 10:15:42"},
		{"2023-12-31T23:59:59+0000", "12.31.2023, 23:59:59"},
		{"2024-03-01T10:15:42+01:00", "03.01.2024, 10:15:42"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		if got := FormatSubmissionTime(tt.raw); got != tt.want {
			t.Errorf("FormatSubmissionTime(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
