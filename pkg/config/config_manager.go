package config

import (
	"reflect"
	"strings"
)

// ConfigManager handles merging CLI flags into the Config struct.
// Priority: CLI flags > Config file > Default values.
type ConfigManager struct {
	Config *Config
	Flags  map[string]interface{}
}

func NewConfigManager(cfg *Config) *ConfigManager {
	return &ConfigManager{
		Config: cfg,
		Flags:  make(map[string]interface{}),
	}
}

// RegisterFlag registers a CLI flag value under its YAML key. Nested fields
// use dotted keys, e.g. "server.addr".
func (cm *ConfigManager) RegisterFlag(key string, value interface{}) {
	cm.Flags[key] = value
}

// MergeConfiguration overrides config fields with every non-zero flag value.
func (cm *ConfigManager) MergeConfiguration() *Config {
	mergeStruct(reflect.ValueOf(cm.Config).Elem(), "", cm.Flags)
	return cm.Config
}

func mergeStruct(v reflect.Value, prefix string, flags map[string]interface{}) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		yamlTag := field.Tag.Get("yaml")
		if yamlTag == "" {
			continue
		}
		key := prefix + strings.Split(yamlTag, ",")[0]
		fieldValue := v.Field(i)
		if fieldValue.Kind() == reflect.Struct {
			mergeStruct(fieldValue, key+".", flags)
			continue
		}
		flagValue, exists := flags[key]
		if !exists || isZeroValue(reflect.ValueOf(flagValue)) || !fieldValue.CanSet() {
			continue
		}
		flagVal := reflect.ValueOf(flagValue)
		if flagVal.Type().ConvertibleTo(fieldValue.Type()) {
			fieldValue.Set(flagVal.Convert(fieldValue.Type()))
		}
	}
}

func isZeroValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	default:
		return v.IsZero()
	}
}
