// Package config loads application settings from defaults, a YAML file,
// .env files and the environment, in that order of precedence (last wins).
//
//	cfg, err := config.Load("meract.yaml")
//	if err != nil {
//		return err
//	}
//
// Environment variable names are listed in the env tags of each section,
// e.g. MERACT_PORT, STORAGE_DRIVER, SESSION_SECRET, LOG_LEVEL.
package config
