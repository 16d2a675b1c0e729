package response

type ErrCode int

const (
	_                                ErrCode = 10000 + iota
	ErrCodeMalformedJSON                     // 10001
	ErrCodeRequestBody                       // 10002
	ErrCodeResourceExists                    // 10003
	ErrCodeResourceNotFound                  // 10004
	ErrCodeLegalActionNotFound               // 10005
	ErrCodeDeviceNotFound                    // 10006
	ErrCodeDeviceNotConnect                  // 10007
	ErrCodeDeviceOperatorUnSupported         // 10008
	ErrCodeDeviceTypeUnSupported             // 10009
	ErrCodeInvalidDevice                     // 10010
	ErrCodeChannelReadOnly                   // 10011
	ErrCodeInvalidCommand                    // 10012
	ErrCodeCommandFailed                     // 10013
	ErrCodeGatewayBusy                       // 10014
	ErrCodeTooManyJsonPatchOperations        // 10015
)

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end, and append comment of number
// Meanwhile, the corresponding error message SHOULD be appended in response.errors
// The order MUST be consistent between them
