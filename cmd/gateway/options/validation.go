package options

import (
	"net/url"
	"strconv"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

func Validate(o *Options) []error {
	var errs []error
	if err := o.BaseOptions.ValidateAndApply(); err != nil {
		errs = append(errs, err)
	}

	fieldErrs := field.ErrorList{}
	if port, err := strconv.Atoi(o.Port); err != nil || port < 1 || port > 65535 {
		fieldErrs = append(fieldErrs, field.Invalid(field.NewPath("port"), o.Port, "must be between 1 and 65535"))
	}
	if (len(o.CertFile) == 0) != (len(o.KeyFile) == 0) {
		fieldErrs = append(fieldErrs, field.Invalid(field.NewPath("keyFile"), o.KeyFile, "certFile and keyFile must be set together"))
	}
	if len(o.Mqtt.Broker) > 0 {
		if u, err := url.Parse(o.Mqtt.Broker); err != nil || len(u.Host) == 0 {
			fieldErrs = append(fieldErrs, field.Invalid(field.NewPath("mqtt", "broker"), o.Mqtt.Broker, "must be an url like tcp://host:1883"))
		}
	}
	if o.Mqtt.QoS > 2 {
		fieldErrs = append(fieldErrs, field.NotSupported(field.NewPath("mqtt", "qos"), o.Mqtt.QoS, []string{"0", "1", "2"}))
	}
	for name, d := range map[string]int64{
		"lockAcquireTimeout": int64(o.LockAcquireTimeout),
		"connectTimeout":     int64(o.ConnectTimeout),
		"ioTimeout":          int64(o.IoTimeout),
		"heartBeatInterval":  int64(o.HeartBeatInterval),
	} {
		if d <= 0 {
			fieldErrs = append(fieldErrs, field.Invalid(field.NewPath(name), d, "must be positive"))
		}
	}
	if o.MaxConsecutiveFailures < 0 {
		fieldErrs = append(fieldErrs, field.Invalid(field.NewPath("maxConsecutiveFailures"), o.MaxConsecutiveFailures, "must not be negative"))
	}

	if agg := fieldErrs.ToAggregate(); agg != nil {
		errs = append(errs, agg)
	}
	return errs
}
