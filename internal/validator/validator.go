// Package validator registers the custom binding tags used by request DTOs.
package validator

import (
	"reflect"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"moneta/internal/importer"
	"moneta/internal/mapping"
	"moneta/internal/models"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// supportedCurrencies are the ISO 4217 codes accounts may be opened in.
var supportedCurrencies = map[string]bool{
	"BRL": true, "USD": true, "EUR": true, "GBP": true, "ARS": true,
	"CLP": true, "UYU": true, "PYG": true, "MXN": true, "CAD": true,
	"CHF": true, "JPY": true,
}

// Register installs every custom validator on gin's engine. It is safe to
// call more than once.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("hex_color", validateHexColor)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("category_type", validateTransactionType)
		_ = v.RegisterValidation("account_type", validateAccountType)
		_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
		_ = v.RegisterValidation("iso_date", validateISODate)
		_ = v.RegisterValidation("mapping_action", validateMappingAction)
		_ = v.RegisterValidation("import_format", validateImportFormat)
		_ = v.RegisterValidation("decimal_positive", validatePositiveDecimal)
	}
}

func validateISO4217(fl validator.FieldLevel) bool {
	return supportedCurrencies[fl.Field().String()]
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

// Categories share the income/expense partition of transactions.
func validateTransactionType(fl validator.FieldLevel) bool {
	return models.TransactionType(fl.Field().String()).Valid()
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch models.AccountType(fl.Field().String()) {
	case models.AccountTypeChecking, models.AccountTypeSavings, models.AccountTypeCash, models.AccountTypeWallet:
		return true
	}
	return false
}

func validateBudgetPeriod(fl validator.FieldLevel) bool {
	switch models.BudgetPeriod(fl.Field().String()) {
	case models.BudgetPeriodMonthly, models.BudgetPeriodYearly:
		return true
	}
	return false
}

func validateISODate(fl validator.FieldLevel) bool {
	return importer.IsISODate(fl.Field().String())
}

func validateMappingAction(fl validator.FieldLevel) bool {
	return mapping.Action(fl.Field().String()).Valid()
}

func validateImportFormat(fl validator.FieldLevel) bool {
	_, err := importer.ParseFormat(fl.Field().String())
	return err == nil
}

// decimalValue lets string tags run against decimal.Decimal fields.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

// validatePositiveDecimal accepts decimal fields and decimal strings above zero.
func validatePositiveDecimal(fl validator.FieldLevel) bool {
	d, ok := importer.ParseAmount(fl.Field().String())
	return ok && d.IsPositive()
}
