package util

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
	relaymodel "github.com/songquanpeng/litegate/relay/model"
)

type GeneralErrorResponse struct {
	Error    relaymodel.Error `json:"error"`
	Message  string           `json:"message"`
	Msg      string           `json:"msg"`
	Err      string           `json:"err"`
	ErrorMsg string           `json:"error_msg"`
	Header   struct {
		Message string `json:"message"`
	} `json:"header"`
	Response struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"response"`
}

func (e GeneralErrorResponse) ToMessage() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != "" {
		return e.Err
	}
	if e.ErrorMsg != "" {
		return e.ErrorMsg
	}
	if e.Header.Message != "" {
		return e.Header.Message
	}
	if e.Response.Error.Message != "" {
		return e.Response.Error.Message
	}
	return ""
}

// RelayErrorHandler turns a non-2xx upstream response into an error. It
// always closes the response body.
func RelayErrorHandler(resp *http.Response) (ErrorWithStatusCode *relaymodel.ErrorWithStatusCode) {
	ErrorWithStatusCode = &relaymodel.ErrorWithStatusCode{
		StatusCode: resp.StatusCode,
		Error: relaymodel.Error{
			Message: "",
			Type:    "upstream_error",
			Code:    "bad_response_status_code",
			Param:   strconv.Itoa(resp.StatusCode),
		},
	}
	defer CloseResponseBodyGracefully(resp)

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	if config.DebugEnabled {
		logger.SysLog(fmt.Sprintf("error happened, status code: %d, response: \n%s", resp.StatusCode, string(responseBody)))
	}
	var errResponse GeneralErrorResponse
	err = json.Unmarshal(responseBody, &errResponse)
	if err == nil {
		if errResponse.Error.Message != "" {
			// OpenAI format error, so we override the default one
			ErrorWithStatusCode.Error = errResponse.Error
		} else {
			ErrorWithStatusCode.Error.Message = errResponse.ToMessage()
		}
	}
	if ErrorWithStatusCode.Error.Message == "" {
		ErrorWithStatusCode.Error.Message = statusMessage(resp.StatusCode)
	}
	return
}

func statusMessage(statusCode int) string {
	switch statusCode {
	case http.StatusGatewayTimeout:
		return "gateway timeout (504): the provider did not answer in time"
	case http.StatusBadGateway:
		return "bad gateway (502): the provider returned an invalid response"
	case http.StatusServiceUnavailable:
		return "service unavailable (503): the provider cannot handle the request right now"
	case http.StatusTooManyRequests:
		return "too many requests (429): provider rate limit reached"
	case http.StatusUnauthorized:
		return "unauthorized (401): the provider API key is invalid or expired"
	case http.StatusForbidden:
		return "forbidden (403): no access to this resource or model"
	case http.StatusNotFound:
		return "not found (404): the endpoint or model does not exist"
	}
	return fmt.Sprintf("upstream error (status code %d)", statusCode)
}

// RelayErrorHandlerWithAdaptor gives the adaptor a chance to parse its own
// error format before falling back to RelayErrorHandler.
func RelayErrorHandlerWithAdaptor(resp *http.Response, adaptor any) *relaymodel.ErrorWithStatusCode {
	if errorHandler, ok := adaptor.(interface {
		HandleErrorResponse(resp *http.Response) *relaymodel.ErrorWithStatusCode
	}); ok {
		if adaptorError := errorHandler.HandleErrorResponse(resp); adaptorError != nil {
			CloseResponseBodyGracefully(resp)
			return adaptorError
		}
	}
	return RelayErrorHandler(resp)
}

// GetFullRequestURL joins baseURL and requestURL, tolerating a baseURL that
// already ends in /v1.
func GetFullRequestURL(baseURL string, requestURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") && strings.HasPrefix(requestURL, "/v1/") {
		requestURL = strings.TrimPrefix(requestURL, "/v1")
	}
	return baseURL + requestURL
}

func CloseResponseBodyGracefully(httpResponse *http.Response) {
	if httpResponse == nil || httpResponse.Body == nil {
		return
	}
	err := httpResponse.Body.Close()
	if err != nil {
		logger.SysLog(fmt.Sprintf("failed to close response body: %s", err.Error()))
	}
}
