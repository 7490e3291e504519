package session

import (
	"github.com/listendoctor/go-integration-demo/internal/capture"
	"github.com/listendoctor/go-integration-demo/internal/config"
	"github.com/listendoctor/go-integration-demo/internal/stream"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		recorder := do.MustInvoke[capture.Recorder](i)
		sess := do.MustInvoke[stream.Session](i)
		return NewManager(cfg, recorder, sess), nil
	})
}
