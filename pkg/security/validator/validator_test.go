package validator

import (
	"context"
	"net"
	"testing"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
)

type fakeResolver struct {
	addrs map[string][]net.IPAddr
}

func (f *fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return f.addrs[host], nil
}

func TestValidator_Validate(t *testing.T) {
	resolver := &fakeResolver{addrs: map[string][]net.IPAddr{
		"backend.example.com":  {{IP: net.ParseIP("203.0.113.10")}},
		"sneaky.example.com":   {{IP: net.ParseIP("10.0.0.5")}},
	}}
	v := NewWithResolver(resolver)

	tests := []struct {
		name    string
		url     string
		wantErr apierrors.Kind
	}{
		{name: "valid https", url: "https://backend.example.com/", wantErr: ""},
		{name: "valid http with port", url: "http://backend.example.com:9000", wantErr: ""},
		{name: "bad scheme", url: "ftp://backend.example.com", wantErr: apierrors.KindInvalidURL},
		{name: "malformed", url: "://nope", wantErr: apierrors.KindInvalidURL},
		{name: "localhost", url: "http://localhost:8080", wantErr: apierrors.KindInvalidURL},
		{name: "loopback literal", url: "http://127.0.0.1:8080", wantErr: apierrors.KindInvalidURL},
		{name: "private literal", url: "http://10.1.2.3", wantErr: apierrors.KindInvalidURL},
		{name: "link-local ipv6", url: "http://[fe80::1]", wantErr: apierrors.KindInvalidURL},
		{name: "internal suffix", url: "http://model-host.internal", wantErr: apierrors.KindInvalidURL},
		{name: "corp suffix", url: "https://llm.corp", wantErr: apierrors.KindInvalidURL},
		{name: "blocked port", url: "http://backend.example.com:5432", wantErr: apierrors.KindInvalidURL},
		{name: "dns resolves to private range", url: "http://sneaky.example.com", wantErr: apierrors.KindInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), tt.url)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error of kind %s, got nil", tt.wantErr)
			}
			if err.Kind != tt.wantErr {
				t.Fatalf("expected kind %s, got %s", tt.wantErr, err.Kind)
			}
		})
	}
}
