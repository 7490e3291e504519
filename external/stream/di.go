package stream

import (
	"github.com/listendoctor/go-integration-demo/internal/config"
	"github.com/listendoctor/go-integration-demo/internal/stream"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (stream.Session, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewWSSession(c.SocketURL, c.ChunkAckTimeout), nil
	})
}
