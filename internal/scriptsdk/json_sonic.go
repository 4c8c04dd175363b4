//go:build sonic

package scriptsdk

import (
	"github.com/bytedance/sonic"
)

// for imroc/req and the version document
var jsonMarshal = sonic.Marshal
var jsonUnmarshal = sonic.Unmarshal
