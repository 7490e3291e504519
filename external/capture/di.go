package capture

import (
	"github.com/listendoctor/go-integration-demo/internal/capture"
	"github.com/listendoctor/go-integration-demo/internal/config"
	"github.com/samber/do/v2"
)

const demoToneFrequencyHz = 440

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (capture.Recorder, error) {
		c := do.MustInvoke[*config.Config](i)
		source := ToneSource(demoToneFrequencyHz)
		if c.AudioSourcePath != "" {
			source = FileSource(c.AudioSourcePath)
		}
		return NewFileRecorder(c.CaptureDir, source), nil
	})
}
