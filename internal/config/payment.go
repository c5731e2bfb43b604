package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PaymentConfig holds the manually maintained payment instructions shown to
// customers who pay by bank transfer or mobile money.
type PaymentConfig struct {
	Currency    string          `yaml:"currency"`
	Bank        BankDetails     `yaml:"bank"`
	MobileMoney []MobileMoney   `yaml:"mobile_money"`
	Methods     []PaymentMethod `yaml:"methods"`
}

type BankDetails struct {
	BankName      string `yaml:"bank_name" json:"bank_name"`
	AccountName   string `yaml:"account_name" json:"account_name"`
	AccountNumber string `yaml:"account_number" json:"account_number"`
	SwiftCode     string `yaml:"swift_code" json:"swift_code,omitempty"`
	IBAN          string `yaml:"iban" json:"iban,omitempty"`
	Instructions  string `yaml:"instructions" json:"instructions"`
}

type MobileMoney struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Number       string `yaml:"number" json:"number"`
	Instructions string `yaml:"instructions" json:"instructions"`
	Enabled      bool   `yaml:"enabled" json:"-"`
}

type PaymentMethod struct {
	ID                 string `yaml:"id"`
	Name               string `yaml:"name"`
	Icon               string `yaml:"icon"`
	Description        string `yaml:"description"`
	Enabled            bool   `yaml:"enabled"`
	RequiresGateway    bool   `yaml:"requires_gateway"`
	Provider           string `yaml:"provider"`
	ManualConfirmation bool   `yaml:"manual_confirmation"`
}

// DefaultPayment returns placeholder instructions used when no file is given.
func DefaultPayment() *PaymentConfig {
	return &PaymentConfig{
		Currency: "UGX",
		Bank: BankDetails{
			BankName:      "Your Bank Name",
			AccountName:   "Business Account Name",
			AccountNumber: "XXXXXXXXXX",
			Instructions:  "Please transfer the exact amount to the account below. Use order number as reference.",
		},
		MobileMoney: []MobileMoney{
			{ID: "mtn", Name: "MTN Mobile Money", Number: "+256700000000", Instructions: "Send to this MTN number. Use order number in the memo.", Enabled: true},
			{ID: "airtel", Name: "Airtel Money", Number: "+256700000001", Instructions: "Send to this Airtel number. Use order number in the memo.", Enabled: true},
		},
		Methods: []PaymentMethod{
			{ID: "bank_transfer", Name: "Bank Transfer", Icon: "🏦", Description: "Direct bank transfer - Instructions will be sent to your email", Enabled: true, ManualConfirmation: true},
			{ID: "card", Name: "Card Payment (Stripe)", Icon: "💳", Description: "Pay securely with Visa, Mastercard, or other cards", Enabled: true, RequiresGateway: true, Provider: "stripe"},
			{ID: "mobile_money", Name: "Mobile Money", Icon: "📱", Description: "MTN or Airtel money transfer", Enabled: true, ManualConfirmation: true},
			{ID: "paypal", Name: "PayPal", Icon: "🅿️", Description: "Fast and secure payment via PayPal", Enabled: true, RequiresGateway: true, Provider: "paypal"},
			{ID: "pod", Name: "Pay on Delivery", Icon: "🛒", Description: "Pay when you receive your order", Enabled: true},
		},
	}
}

// LoadPaymentFile reads payment instructions from a YAML file. Sections left
// out of the file keep their defaults.
func LoadPaymentFile(path string) (*PaymentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payment config %s: %w", path, err)
	}
	return ParsePayment(data)
}

// ParsePayment parses YAML payment instructions over the defaults.
func ParsePayment(data []byte) (*PaymentConfig, error) {
	defaults := DefaultPayment()
	var pc PaymentConfig
	if err := yaml.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("parse payment config: %w", err)
	}

	if pc.Currency == "" {
		pc.Currency = defaults.Currency
	}
	if pc.Bank == (BankDetails{}) {
		pc.Bank = defaults.Bank
	}
	if pc.Bank.Instructions == "" {
		pc.Bank.Instructions = defaults.Bank.Instructions
	}
	if len(pc.MobileMoney) == 0 {
		pc.MobileMoney = defaults.MobileMoney
	}
	if len(pc.Methods) == 0 {
		pc.Methods = defaults.Methods
	}
	return &pc, nil
}

// EnabledMethods returns the payment methods offered at checkout.
func (p *PaymentConfig) EnabledMethods() []PaymentMethod {
	var out []PaymentMethod
	for _, m := range p.Methods {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// Provider looks up an enabled mobile money provider by id.
func (p *PaymentConfig) Provider(id string) (MobileMoney, bool) {
	for _, mm := range p.MobileMoney {
		if mm.ID == id && mm.Enabled {
			return mm, true
		}
	}
	return MobileMoney{}, false
}

// EnabledProviders lists mobile money providers customers may pay to.
func (p *PaymentConfig) EnabledProviders() []MobileMoney {
	var out []MobileMoney
	for _, mm := range p.MobileMoney {
		if mm.Enabled {
			out = append(out, mm)
		}
	}
	return out
}

// applyEnv lets deployment env vars override individual fields.
func (p *PaymentConfig) applyEnv() {
	p.Bank.BankName = getEnv("BANK_NAME", p.Bank.BankName)
	p.Bank.AccountName = getEnv("ACCOUNT_NAME", p.Bank.AccountName)
	p.Bank.AccountNumber = getEnv("ACCOUNT_NUMBER", p.Bank.AccountNumber)
	p.Bank.SwiftCode = getEnv("SWIFT_CODE", p.Bank.SwiftCode)
	p.Bank.IBAN = getEnv("IBAN", p.Bank.IBAN)
	p.Currency = getEnv("BANK_CURRENCY", p.Currency)
	for i := range p.MobileMoney {
		switch p.MobileMoney[i].ID {
		case "mtn":
			p.MobileMoney[i].Number = getEnv("MTN_NUMBER", p.MobileMoney[i].Number)
		case "airtel":
			p.MobileMoney[i].Number = getEnv("AIRTEL_NUMBER", p.MobileMoney[i].Number)
		}
	}
}
