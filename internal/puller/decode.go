package puller

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeData decodes the generic payload of a loaded snapshot into target, a pointer to a typed data struct.
//
// Numeric fields are decoded leniently: numbers written as strings are converted and values that
// cannot be read as a number are left unset instead of failing the whole decoding.
func DecodeData(r Result, target any) error {
	if r.Data == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(getDecoderConfig(target))
	if err != nil {
		return fmt.Errorf("failed to create decoder: %v", err)
	}

	if err := decoder.Decode(r.Data); err != nil {
		return errors.Join(fmt.Errorf("%s data does not match expected model structure", r.SourceID), err)
	}
	return nil
}

func getDecoderConfig(target any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			// This hook drops values that cannot be read as a number when a number is expected.
			func(from reflect.Type, to reflect.Type, data any) (any, error) {
				if to.Kind() == reflect.Pointer {
					to = to.Elem()
				}
				if to.Kind() != reflect.Float64 {
					return data, nil
				}

				switch v := data.(type) {
				case string:
					f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
					if err != nil {
						return nil, nil
					}
					return f, nil
				case bool:
					return nil, nil
				}
				return data, nil
			},
		),
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           target,
	}
}
