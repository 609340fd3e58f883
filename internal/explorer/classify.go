package explorer

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// responseClass is the five-way classification from spec §4.2:
// "success-with-data, success-but-empty ... invalid key, rate-limited,
// malformed". Empty-success is deliberately distinct from an error: "No
// data found" means the address is an EOA or the data is unindexed, not
// a failure.
type responseClass int

const (
	classSuccess responseClass = iota
	classEmptySuccess
	classInvalidKey
	classRateLimited
	classMalformed
)

// envelope is the {status, message, result} shape most endpoints use;
// proxy-module endpoints (eth_call, eth_getCode, …) return a bare
// JSON-RPC {result} instead, so classifyResponse branches on module.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func classifyResponse(resp *http.Response, module string) ([]byte, *envelope, responseClass) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, classMalformed
	}

	if module == "proxy" {
		var rpcEnv rpcEnvelope
		if err := json.Unmarshal(body, &rpcEnv); err != nil {
			return body, nil, classMalformed
		}
		if rpcEnv.Error != nil {
			if isRateLimitMessage(rpcEnv.Error.Message) {
				return body, nil, classRateLimited
			}
			if isInvalidKeyMessage(rpcEnv.Error.Message) {
				return body, nil, classInvalidKey
			}
			return body, nil, classMalformed
		}
		return body, &envelope{Status: "1", Result: rpcEnv.Result}, classSuccess
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return body, nil, classMalformed
	}

	switch {
	case isRateLimitMessage(env.Message):
		return body, &env, classRateLimited
	case isInvalidKeyMessage(env.Message):
		return body, &env, classInvalidKey
	case env.Status == "0" && isEmptyMessage(env.Message):
		return body, &env, classEmptySuccess
	case env.Status == "1":
		return body, &env, classSuccess
	default:
		return body, &env, classMalformed
	}
}

func isRateLimitMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "max rate limit reached")
}

func isInvalidKeyMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "invalid api key") || strings.Contains(msg, "missing/invalid api key")
}

func isEmptyMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "no data found") ||
		strings.Contains(msg, "no transactions found") ||
		strings.Contains(msg, "no records found")
}
