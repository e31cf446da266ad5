// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/viper"
)

// loadConfig registers the workspace configuration file with viper.
// The file is optional; flags always win over configured values.
func loadConfig(workspace, name string) error {
	if workspace == "" {
		return nil
	}
	viper.SetConfigName(name)
	viper.AddConfigPath(workspace)
	return viper.ReadInConfig()
}

// resolve returns the flag value if set, the configured value for key
// otherwise, and the fallback if neither is present.
func resolve(flagVal, key, fallback string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}
