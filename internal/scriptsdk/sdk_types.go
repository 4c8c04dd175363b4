package scriptsdk

import (
	"fmt"
	"net"
	"runtime"
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/scriptsync/internal/utils"
	"github.com/openmined/scriptsync/internal/version"
)

const (
	HeaderUserAgent = "User-Agent"
	HeaderVersion   = "X-Scriptsync-Version"
	HeaderDeviceID  = "X-Scriptsync-Device-Id"
)

var UserAgent = fmt.Sprintf("ScriptSync/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

// newHTTPClient builds a req client with the connect/read timeout discipline every origin
// call shares. The dialer enforces the connect timeout, the response header deadline enforces
// the read timeout and the client timeout bounds the whole exchange.
func newHTTPClient(cfg *Config) *req.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	client := req.C().
		SetBaseURL(cfg.BaseURL).
		SetDial(dialer.DialContext).
		SetTimeout(cfg.ConnectTimeout+cfg.ReadTimeout).
		SetCommonRetryCount(cfg.Retries).
		SetCommonRetryFixedInterval(cfg.RetryInterval).
		SetUserAgent(UserAgent).
		SetCommonHeader(HeaderVersion, version.Version).
		SetCommonHeader(HeaderDeviceID, utils.HWID).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	client.GetTransport().SetResponseHeaderTimeout(cfg.ReadTimeout)
	return client
}
