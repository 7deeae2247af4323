package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/escrowdesk/pkg/config"
)

func TestNewClientValidatesKeyForEnv(t *testing.T) {
	ctx := context.Background()

	if _, err := NewClient(ctx, config.StripeConfig{}, nil); !errors.Is(err, errAPIKeyRequired) {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if _, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_live_123", Env: "test"}, nil); err == nil {
		t.Fatalf("expected live key to be rejected in test env")
	}
	if _, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", Env: "staging"}, nil); !errors.Is(err, errInvalidStripeEnv) {
		t.Fatalf("expected invalid env error, got %v", err)
	}

	client, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Environment() != testEnv || client.API() == nil {
		t.Fatalf("unexpected client %+v", client)
	}
}

func TestIntentIDFromClientSecret(t *testing.T) {
	cases := map[string]struct {
		secret string
		want   string
		ok     bool
	}{
		"valid":          {"pi_3Nabc_secret_XYZ", "pi_3Nabc", true},
		"padded":         {"  pi_1_secret_a  ", "pi_1", true},
		"no marker":      {"pi_3Nabc", "", false},
		"empty secret":   {"pi_3Nabc_secret_", "", false},
		"wrong prefix":   {"seti_1_secret_a", "", false},
		"marker at head": {"_secret_abc", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := IntentIDFromClientSecret(tc.secret)
			if tc.ok {
				if err != nil || got != tc.want {
					t.Fatalf("got %q err %v", got, err)
				}
				return
			}
			if !errors.Is(err, errInvalidClientSecret) {
				t.Fatalf("expected malformed error, got %q %v", got, err)
			}
		})
	}
}
