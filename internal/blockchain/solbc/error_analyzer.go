package solbc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// Коды ошибок программы bonding curve, означающие нарушение ограничения проскальзывания.
const (
	ErrCodeTooMuchSolRequired   = 6002
	ErrCodeTooLittleSolReceived = 6003
)

var slippageErrorNames = []string{"TooMuchSolRequired", "TooLittleSolReceived", "SlippageExceeded"}

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// Failure - разобранная причина отказа транзакции.
type Failure struct {
	// Reason - ошибка узла в исходном виде (JSON)
	Reason string
	// InstructionIndex - индекс упавшей инструкции, -1 если неизвестен
	InstructionIndex int
	// CustomCode - код ошибки программы, 0 если отсутствует
	CustomCode int
	Anchor     *AnchorError
	Slippage   bool
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// Analyze разбирает ошибку исполнения (из симуляции или статуса подписи) и логи программы.
func (ea *ErrorAnalyzer) Analyze(txErr interface{}, logs []string) Failure {
	f := Failure{
		Reason:           FormatTxError(txErr),
		InstructionIndex: -1,
	}

	if m, ok := txErr.(map[string]interface{}); ok {
		if ixErr, ok := m["InstructionError"].([]interface{}); ok && len(ixErr) == 2 {
			if idx, ok := ixErr[0].(float64); ok {
				f.InstructionIndex = int(idx)
			}
			if detail, ok := ixErr[1].(map[string]interface{}); ok {
				if code, ok := detail["Custom"].(float64); ok {
					f.CustomCode = int(code)
				}
			}
		}
	}

	for _, logStr := range logs {
		if strings.Contains(logStr, "AnchorError") {
			anchorErr := parseAnchorErrorLog(logStr)
			f.Anchor = &anchorErr
			if f.CustomCode == 0 {
				f.CustomCode = anchorErr.Code
			}
			ea.logger.Debug("Anchor error detected",
				zap.Int("code", anchorErr.Code),
				zap.String("name", anchorErr.Name),
				zap.String("message", anchorErr.Msg))
		}
	}

	f.Slippage = isSlippage(f, logs)
	return f
}

func isSlippage(f Failure, logs []string) bool {
	if f.CustomCode == ErrCodeTooMuchSolRequired || f.CustomCode == ErrCodeTooLittleSolReceived {
		return true
	}
	if f.Anchor != nil {
		for _, name := range slippageErrorNames {
			if f.Anchor.Name == name {
				return true
			}
		}
	}
	for _, logStr := range logs {
		for _, name := range slippageErrorNames {
			if strings.Contains(logStr, name) {
				return true
			}
		}
		lower := strings.ToLower(logStr)
		if strings.Contains(lower, "custom program error: 0x1772") || strings.Contains(lower, "custom program error: 0x1773") {
			return true
		}
	}
	return false
}

// FormatTxError возвращает ошибку узла в исходном JSON-представлении.
func FormatTxError(txErr interface{}) string {
	switch v := txErr.(type) {
	case nil:
		return ""
	case string:
		return v
	case error:
		return v.Error()
	}
	raw, err := json.Marshal(txErr)
	if err != nil {
		return fmt.Sprintf("%v", txErr)
	}
	return string(raw)
}

// AnalyzeRPCError извлекает из ошибки jsonrpc ошибку исполнения и логи симуляции
// (ответ узла на preflight-проверку).
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) (Failure, bool) {
	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok || !strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		return Failure{}, false
	}

	var (
		txErr interface{}
		logs  []string
	)
	if dataMap, ok := rpcErr.Data.(map[string]interface{}); ok {
		txErr = dataMap["err"]
		if rawLogs, ok := dataMap["logs"].([]interface{}); ok {
			for _, entry := range rawLogs {
				if s, ok := entry.(string); ok {
					logs = append(logs, s)
				}
			}
		}
	}
	if txErr == nil {
		txErr = rpcErr.Message
	}
	return ea.Analyze(txErr, logs), true
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.SplitN(logStr, "Error Number:", 2); len(parts) == 2 {
		numParts := strings.Split(parts[1], ".")
		fmt.Sscanf(strings.TrimSpace(numParts[0]), "%d", &result.Code)
	}

	if parts := strings.SplitN(logStr, "Error Code:", 2); len(parts) == 2 {
		result.Name = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}

	if parts := strings.SplitN(logStr, "Error Message:", 2); len(parts) == 2 {
		result.Msg = strings.TrimSuffix(strings.TrimSpace(parts[1]), ".")
	}

	return result
}
