package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"funds-transfer/pkg/account"

	"github.com/shopspring/decimal"
)

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid", Request{"A", "B", decimal.NewFromInt(10), "INR"}, false},
		{"zero amount", Request{"A", "B", decimal.Zero, "INR"}, false},
		{"self transfer", Request{"A", "A", decimal.NewFromInt(1), "INR"}, false},
		{"missing from", Request{"", "B", decimal.NewFromInt(1), "INR"}, true},
		{"missing to", Request{"A", "", decimal.NewFromInt(1), "INR"}, true},
		{"missing currency", Request{"A", "B", decimal.NewFromInt(1), ""}, true},
		{"negative amount", Request{"A", "B", decimal.NewFromInt(-1), "INR"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestRequest_DecodesExactAmount(t *testing.T) {
	var req Request
	body := `{"fromAccountId":"Id-123","toAccountId":"Id-125","amount":100.10,"currency":"INR"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if !req.Amount.Equal(decimal.RequireFromString("100.10")) {
		t.Errorf("Expected amount 100.10, got %s", req.Amount)
	}
	if req.FromAccountID != "Id-123" || req.ToAccountID != "Id-125" || req.Currency != "INR" {
		t.Errorf("Unexpected request: %+v", req)
	}
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		cause error
		want  string
	}{
		{nil, ""},
		{fmt.Errorf("sender x: %w", account.ErrAccountNotFound), ReasonAccountNotFound},
		{fmt.Errorf("wrapped: %w", account.ErrInsufficientFunds), ReasonInsufficientFunds},
		{fmt.Errorf("%w: A: %w", ErrLockTimeout, context.DeadlineExceeded), ReasonLockTimeout},
		{account.ErrStoreClosed, ReasonUnavailable},
		{errors.New("boom"), ReasonUnavailable},
	}

	for _, tt := range tests {
		if got := reasonFor(tt.cause); got != tt.want {
			t.Errorf("reasonFor(%v) = %q, want %q", tt.cause, got, tt.want)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		cause error
		want  string
	}{
		{nil, ""},
		{fmt.Errorf("%w: A: %w", ErrLockTimeout, context.DeadlineExceeded), "lock_timeout"},
		{fmt.Errorf("%w: bad", ErrInvalidRequest), "invalid_request"},
		{account.ErrInsufficientFunds, "insufficient_funds"},
		{account.ErrAccountNotFound, "account_not_found"},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.cause); got != tt.want {
			t.Errorf("ClassifyError(%v) = %q, want %q", tt.cause, got, tt.want)
		}
	}
}

func TestOutcome_JSONOmitsCause(t *testing.T) {
	out := Outcome{
		TransactionID: "tx-1",
		Status:        StatusFailure,
		Message:       MessageDeclined,
		Reason:        ReasonInsufficientFunds,
		Cause:         account.ErrInsufficientFunds,
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := decoded["Cause"]; ok {
		t.Error("Cause must not be serialized")
	}
	if decoded["status"] != "FAILURE" || decoded["reason"] != ReasonInsufficientFunds {
		t.Errorf("Unexpected body: %s", data)
	}
}
