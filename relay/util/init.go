package util

import (
	"net/http"

	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/service"
)

var HTTPClient *http.Client

func init() {
	InitHTTPClient()
}

// InitHTTPClient rebuilds HTTPClient from RELAY_PROXY and RELAY_TIMEOUT.
func InitHTTPClient() {
	client, err := service.GetHttpClientWithProxy(config.RelayProxy)
	if err != nil {
		logger.SysError("invalid RELAY_PROXY, falling back to a direct connection: " + err.Error())
		client, _ = service.GetHttpClientWithProxy("")
	}
	HTTPClient = client
}
