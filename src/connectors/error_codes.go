package connectors

import "fmt"

// providerStatusMessages maps HTTP statuses market data providers answer
// with to short labels used in logs and errors.
var providerStatusMessages = map[int]string{
	400:  "BAD_REQUEST",         // Unknown parameter or malformed query
	401:  "UNAUTHORIZED",        // Missing or invalid API key
	403:  "FORBIDDEN",           // Key lacks access to this endpoint
	404:  "NOT_FOUND",           // Unknown coin id or symbol
	408:  "REQUEST_TIMEOUT",     // Upstream timed out
	418:  "IP_BANNED",           // Binance auto-ban after ignoring 429s
	429:  "RATE_LIMITED",        // Too many requests, back off
	500:  "INTERNAL_ERROR",      // Provider side failure
	502:  "BAD_GATEWAY",         // Edge proxy could not reach origin
	503:  "SERVICE_UNAVAILABLE", // Maintenance or overload
	504:  "GATEWAY_TIMEOUT",     // Edge proxy timed out
	1020: "ACCESS_DENIED",       // Cloudflare firewall rule (CoinGecko)
}

// GetErrorMsg returns the label for a provider status code.
func GetErrorMsg(code int) string {
	if msg, ok := providerStatusMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_STATUS_%d", code)
}
