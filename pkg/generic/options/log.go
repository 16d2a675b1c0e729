package options

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/component-base/config"
	"k8s.io/component-base/logs"
	"k8s.io/component-base/logs/registry"
)

const defaultFlushFrequency = 5 * time.Second

type LoggingConfiguration struct {
	// Refer [Logs Options](https://github.com/kubernetes/component-base/blob/master/logs/options.go) for more information.
	config.LoggingConfiguration
}

func NewDefaultLoggingConfiguration() LoggingConfiguration {
	return LoggingConfiguration{
		config.LoggingConfiguration{
			Format:         "text",
			FlushFrequency: defaultFlushFrequency,
			Verbosity:      2,
		},
	}
}

// Validate checks the format against the registered log formats.
func (l *LoggingConfiguration) Validate(fldPath *field.Path) field.ErrorList {
	var errs field.ErrorList
	if _, err := registry.LogRegistry.Get(l.Format); err != nil {
		errs = append(errs, field.NotSupported(fldPath.Child("format"), l.Format, registry.LogRegistry.List()))
	}
	// klog only accepts positive int32 verbosity
	if uint64(l.Verbosity) > math.MaxInt32 {
		errs = append(errs, field.Invalid(fldPath.Child("verbosity"), l.Verbosity, fmt.Sprintf("must be <= %d", math.MaxInt32)))
	}
	if l.FlushFrequency < 0 {
		errs = append(errs, field.Invalid(fldPath.Child("flushFrequency"), l.FlushFrequency.String(), "must not be negative"))
	}
	return errs
}

func (l *LoggingConfiguration) ValidateAndApply() error {
	if errs := l.Validate(field.NewPath("logging")); len(errs) > 0 {
		return errs.ToAggregate()
	}
	o := logs.NewOptions()
	o.Config.Format = l.Format
	o.Config.Verbosity = l.Verbosity
	o.Config.VModule = l.VModule
	if l.FlushFrequency > 0 {
		o.Config.FlushFrequency = l.FlushFrequency
	}
	return o.ValidateAndApply()
}

type marshalLoggingConfig struct {
	Format         string                      `json:"format"`
	FlushFrequency time.Duration               `json:"flushFrequency,omitempty"`
	Verbosity      config.VerbosityLevel       `json:"verbosity"`
	VModule        config.VModuleConfiguration `json:"vmodule,omitempty"`
}

func (l *LoggingConfiguration) MarshalJSON() ([]byte, error) {
	return json.Marshal(&marshalLoggingConfig{
		Format:         l.Format,
		FlushFrequency: l.FlushFrequency,
		Verbosity:      l.Verbosity,
		VModule:        l.VModule,
	})
}

func (l *LoggingConfiguration) UnmarshalJSON(bytes []byte) error {
	in := &marshalLoggingConfig{
		Format:         l.Format,
		FlushFrequency: l.FlushFrequency,
		Verbosity:      l.Verbosity,
		VModule:        l.VModule,
	}
	if err := json.Unmarshal(bytes, in); err != nil {
		return err
	}
	l.Format = in.Format
	l.FlushFrequency = in.FlushFrequency
	l.Verbosity = in.Verbosity
	l.VModule = in.VModule
	return nil
}

// BindLoggingFlags exposes --v, --vmodule and --logging-format and hides the
// other component-base logging flags.
func (l *LoggingConfiguration) BindLoggingFlags(fs *pflag.FlagSet) {
	notHidden := map[string]bool{
		"v":              true,
		"vmodule":        true,
		"logging-format": true,
	}

	logsFs := pflag.NewFlagSet("", pflag.ContinueOnError)
	logs.BindLoggingFlags(&l.LoggingConfiguration, logsFs)
	logsFs.VisitAll(func(f *pflag.Flag) {
		if notHidden[f.Name] {
			if f.Name == "logging-format" {
				formats := fmt.Sprintf(`"%s"`, strings.Join(registry.LogRegistry.List(), `", "`))
				f.Usage = fmt.Sprintf("Sets the log format. Permitted formats: %s.", formats)
			}
			return
		}
		f.Hidden = true
	})

	fs.AddFlagSet(logsFs)
}
