package wwsvc

import (
	"log/slog"

	"github.com/al-bashkir/wwsvc-go/internal/logsanitize"
)

// Credentials identify a registered session.
type Credentials struct {
	// ServicePass is the PASSID issued by REGISTER
	ServicePass string `json:"service_pass" yaml:"service_pass"`

	// AppID is the APPID issued by REGISTER; request hashes are bound to it
	AppID string `json:"app_id" yaml:"app_id"`
}

// NewCredentials returns credentials for a pre-provisioned service pass.
func NewCredentials(servicePass, appID string) Credentials {
	return Credentials{ServicePass: servicePass, AppID: appID}
}

// LogValue masks both values.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("service_pass", logsanitize.Mask(c.ServicePass)),
		slog.String("app_id", logsanitize.Mask(c.AppID)),
	)
}
