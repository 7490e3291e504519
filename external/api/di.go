package api

import (
	"github.com/listendoctor/go-integration-demo/internal/api"
	"github.com/listendoctor/go-integration-demo/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (api.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPClient(c.APIBaseURL, c.APIKey)
	})
}
