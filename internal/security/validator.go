package security

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const maxMessageLength = 4096

// US-style ticker: leading letter, then letters/digits/dot, max 10 chars.
var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.]{0,9}$`)

// ValidateSymbol normalizes and checks a ticker symbol from user input.
func ValidateSymbol(input string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(input))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("invalid symbol %q", input)
	}
	return symbol, nil
}

// ValidateQuantity parses a positive share quantity.
func ValidateQuantity(input string) (float64, error) {
	qty, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return 0, fmt.Errorf("quantity must be a number, got %q", input)
	}
	if qty <= 0 || qty > 1e9 {
		return 0, fmt.Errorf("quantity must be between 0 and 1e9, got %v", qty)
	}
	return qty, nil
}

// ValidatePrice parses a positive price.
func ValidatePrice(input string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return 0, fmt.Errorf("price must be a number, got %q", input)
	}
	if price <= 0 || price > 1e9 {
		return 0, fmt.Errorf("price must be between 0 and 1e9, got %v", price)
	}
	return price, nil
}

// ValidateCondition checks an alert condition keyword.
func ValidateCondition(input string) (string, error) {
	cond := strings.ToLower(strings.TrimSpace(input))
	if cond != "above" && cond != "below" {
		return "", fmt.Errorf("condition must be 'above' or 'below', got %q", input)
	}
	return cond, nil
}

// ValidateMessage rejects oversized or empty message text before any
// further processing.
func ValidateMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty message")
	}
	if len(text) > maxMessageLength {
		return fmt.Errorf("message exceeds %d characters", maxMessageLength)
	}
	return nil
}
