package response

var errors = map[ErrCode]string{
	ErrCodeMalformedJSON:              "The JSON you provided was not well-formed or did not validate against our published format.",
	ErrCodeRequestBody:                "Request body error",
	ErrCodeResourceExists:             "Resource %s already exists.",
	ErrCodeResourceNotFound:           "Resource %s not found.",
	ErrCodeLegalActionNotFound:        "Legal action not found.",
	ErrCodeDeviceNotFound:             "Device %s not found.",
	ErrCodeDeviceNotConnect:           "Device %s is not connected.",
	ErrCodeDeviceOperatorUnSupported:  "Device operator %s is not supported.",
	ErrCodeDeviceTypeUnSupported:      "Device type %s is not supported.",
	ErrCodeInvalidDevice:              "Invalid device: %s",
	ErrCodeChannelReadOnly:            "Channel %s is read only.",
	ErrCodeInvalidCommand:             "Invalid command for channel %s: %s",
	ErrCodeCommandFailed:              "Command for channel %s failed: %s",
	ErrCodeGatewayBusy:                "Gateway of channel %s is busy.",
	ErrCodeTooManyJsonPatchOperations: "The allowed maximum operations in a JSON patch is %d.",
}

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end of enum firstly.

var ErrMalformedJSON = &responseError{
	Code:    ErrCodeMalformedJSON,
	Message: errors[ErrCodeMalformedJSON],
}

var ErrRequestBody = &responseError{
	Code:    ErrCodeRequestBody,
	Message: errors[ErrCodeRequestBody],
}

var ErrLegalActionNotFound = &responseError{
	Code:    ErrCodeLegalActionNotFound,
	Message: errors[ErrCodeLegalActionNotFound],
}
