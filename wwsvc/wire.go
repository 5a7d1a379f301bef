package wwsvc

import "github.com/al-bashkir/wwsvc-go/apphash"

// ExecJSONRequest is the body of an EXECJSON request.
type ExecJSONRequest struct {
	Function ServiceFunction `json:"WWSVC_FUNCTION"`
	PassInfo ServicePassInfo `json:"WWSVC_PASSINFO"`
}

// ServiceFunction names the function to execute.
type ServiceFunction struct {
	FunctionName string                     `json:"FUNCTIONNAME"`
	Parameters   []ServiceFunctionParameter `json:"PARAMETER"`
	Revision     uint32                     `json:"REVISION"`
}

// ServiceFunctionParameter is a single PNAME/PCONTENT pair.
type ServiceFunctionParameter struct {
	Name    string `json:"PNAME"`
	Content string `json:"PCONTENT"`
}

// ServicePassInfo authenticates an EXECJSON request. AppHash, Timestamp and
// RequestID repeat the WWSVC-HASH, WWSVC-TS and WWSVC-REQID headers.
type ServicePassInfo struct {
	ServicePass string `json:"SERVICEPASS"`
	AppHash     string `json:"APPHASH"`
	Timestamp   string `json:"TIMESTAMP"`
	RequestID   uint32 `json:"REQUESTID"`
	ExecuteMode string `json:"EXECUTE_MODE"`
}

// NewExecJSONRequest builds the request body for a signed call.
func NewExecJSONRequest(function string, params []ServiceFunctionParameter, version uint32, servicePass string, sig apphash.AppHash) ExecJSONRequest {
	if params == nil {
		params = []ServiceFunctionParameter{}
	}
	return ExecJSONRequest{
		Function: ServiceFunction{
			FunctionName: function,
			Parameters:   params,
			Revision:     version,
		},
		PassInfo: ServicePassInfo{
			ServicePass: servicePass,
			AppHash:     sig.Hash,
			Timestamp:   sig.Timestamp,
			RequestID:   sig.RequestID,
			ExecuteMode: ExecuteModeSynchron,
		},
	}
}

// ComResult is the status block the server attaches to every response.
type ComResult struct {
	Status uint32 `json:"STATUS"`
	Code   string `json:"CODE"`
	Info   string `json:"INFO"`
	Info2  string `json:"INFO2,omitempty"`
	Info3  string `json:"INFO3,omitempty"`
	ErrNo  string `json:"ERRNO,omitempty"`
}

// RegisterResponse is the body of a REGISTER response.
type RegisterResponse struct {
	ComResult   *ComResult   `json:"COMRESULT"`
	ServicePass *ServicePass `json:"SERVICEPASS"`
}

// ServicePass is issued by REGISTER.
type ServicePass struct {
	PassID string `json:"PASSID"`
	AppID  string `json:"APPID"`
}
