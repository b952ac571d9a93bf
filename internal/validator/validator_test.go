package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
)

type sample struct {
	Type     string `binding:"required,transaction_type"`
	Color    string `binding:"omitempty,hex_color"`
	Date     string `binding:"omitempty,iso_date"`
	Action   string `binding:"omitempty,mapping_action"`
	Format   string `binding:"omitempty,import_format"`
	Currency string `binding:"omitempty,iso4217"`
	Period   string `binding:"omitempty,budget_period"`
	Account  string `binding:"omitempty,account_type"`
}

type money struct {
	Amount decimal.Decimal `binding:"required,decimal_positive"`
}

func TestRegister(t *testing.T) {
	Register()
	Register()

	tests := []struct {
		name    string
		in      sample
		wantErr bool
	}{
		{"valid", sample{Type: "expense", Color: "#FFAA00", Date: "2025-09-15", Action: "create", Format: "ofx", Currency: "BRL", Period: "monthly", Account: "checking"}, false},
		{"transfer_rejected", sample{Type: "transfer"}, true},
		{"bad_color", sample{Type: "income", Color: "red"}, true},
		{"impossible_date", sample{Type: "income", Date: "2025-02-30"}, true},
		{"slash_date", sample{Type: "income", Date: "15/09/2025"}, true},
		{"bad_action", sample{Type: "income", Action: "merge"}, true},
		{"bad_format", sample{Type: "income", Format: "pdf"}, true},
		{"bad_currency", sample{Type: "income", Currency: "XXX"}, true},
		{"bad_period", sample{Type: "income", Period: "weekly"}, true},
		{"bad_account", sample{Type: "income", Account: "credit_card"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecimalPositive(t *testing.T) {
	Register()
	if err := binding.Validator.ValidateStruct(money{Amount: decimal.RequireFromString("150.00")}); err != nil {
		t.Errorf("positive amount rejected: %v", err)
	}
	for _, bad := range []string{"0", "-1.50"} {
		if err := binding.Validator.ValidateStruct(money{Amount: decimal.RequireFromString(bad)}); err == nil {
			t.Errorf("amount %s accepted", bad)
		}
	}
}
