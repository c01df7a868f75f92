package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlags lets a flag override the config key it names. Unset flags
// leave the key to the environment, the config file or the default.
func bindFlags(v *viper.Viper, lookup func(string) *pflag.Flag, keys map[string]string) {
	for key, name := range keys {
		if f := lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}
