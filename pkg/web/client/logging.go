package client

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/compressed-wallet/pkg/web/headers"
)

// InjectLoggingMetadata injects client metadata into a logrus log entry
func InjectLoggingMetadata(r *http.Request, log *logrus.Entry) *logrus.Entry {
	if userAgent := r.UserAgent(); len(userAgent) > 0 {
		log = log.WithField("user_agent", userAgent)
	}

	ip, err := GetIPAddr(r)
	if err == nil {
		log = log.WithField("client_ip", ip)
	}

	requestID, ok := headers.GetRequestID(r.Context())
	if ok {
		log = log.WithField("request_id", requestID)
	}

	return log
}
