package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/redis"
)

// PayPalCorrelation ties a PayPal order token back to the job it pays for
// while the customer is away on PayPal's approval page.
type PayPalCorrelation struct {
	Token      string          `json:"token"`
	JobID      string          `json:"jobId"`
	CustomerID string          `json:"customerId"`
	VendorID   string          `json:"vendorId"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// CorrelationStore persists PayPal correlations between redirect and return.
type CorrelationStore interface {
	Save(ctx context.Context, record PayPalCorrelation) error
	Load(ctx context.Context, token string) (*PayPalCorrelation, error)
	Delete(ctx context.Context, token string) error
}

type redisCorrelationStore struct {
	kv  redis.KVStore
	ttl time.Duration
}

func NewCorrelationStore(kv redis.KVStore, ttl time.Duration) (CorrelationStore, error) {
	if kv == nil {
		return nil, errors.New("correlation kv store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("correlation ttl must be positive")
	}
	return &redisCorrelationStore{kv: kv, ttl: ttl}, nil
}

func (s *redisCorrelationStore) Save(ctx context.Context, record PayPalCorrelation) error {
	if strings.TrimSpace(record.Token) == "" {
		return errors.New("paypal token is required")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode paypal correlation: %w", err)
	}
	return s.kv.Set(ctx, s.kv.PayPalKey(record.Token), string(payload), s.ttl)
}

func (s *redisCorrelationStore) Load(ctx context.Context, token string) (*PayPalCorrelation, error) {
	raw, err := s.kv.Get(ctx, s.kv.PayPalKey(token))
	if errors.Is(err, redis.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "this PayPal checkout has expired or was already completed")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not load PayPal checkout")
	}
	var record PayPalCorrelation
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not read PayPal checkout")
	}
	return &record, nil
}

func (s *redisCorrelationStore) Delete(ctx context.Context, token string) error {
	return s.kv.Del(ctx, s.kv.PayPalKey(token))
}

// orderTokenFromApprovalURL pulls the order token PayPal echoes back on return.
func orderTokenFromApprovalURL(approvalURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(approvalURL))
	if err != nil {
		return "", fmt.Errorf("parse approval url: %w", err)
	}
	token := strings.TrimSpace(parsed.Query().Get("token"))
	if token == "" {
		return "", errors.New("approval url carries no order token")
	}
	return token, nil
}
