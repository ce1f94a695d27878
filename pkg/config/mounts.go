package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DecodeMounts decodes the raw mounts section.
//
// Id map entries accept two spellings:
//
//	uid_map:
//	  - "1000:0"
//	  - host: 1001
//	    instance: 1000
//
// The string form is the common one; the hook below converts it into an
// IDMapEntry before the structural decode runs.
func DecodeMounts(raw any) ([]MountConfig, error) {
	if raw == nil {
		return nil, nil
	}

	var mounts []MountConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &mounts,
		DecodeHook: stringToIDMapEntryHook(),
	})
	if err != nil {
		return nil, fmt.Errorf("build mounts decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode mounts: %w", err)
	}

	return mounts, nil
}

// stringToIDMapEntryHook converts "host:instance" strings to IDMapEntry.
func stringToIDMapEntryHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(IDMapEntry{}) {
			return data, nil
		}

		parts := strings.SplitN(data.(string), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("id map entry %q: want host:instance", data)
		}

		host, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("id map entry %q: bad host id: %w", data, err)
		}

		instance, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("id map entry %q: bad instance id: %w", data, err)
		}

		return IDMapEntry{Host: host, Instance: instance}, nil
	}
}
